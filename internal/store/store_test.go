package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mfontane/borgata/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "borgata.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestConversationCRUD(t *testing.T) {
	db := openTestDB(t)

	c := &models.Conversation{
		ID:               "conv1",
		Title:            "refit the parser",
		Status:           models.ConversationActive,
		WorkingDirectory: "/tmp/work",
		CreatedAt:        time.Now(),
	}
	if err := db.CreateConversation(c); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := db.GetConversation("conv1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("conversation not found")
	}
	if got.Title != c.Title || got.Status != models.ConversationActive || got.WorkingDirectory != "/tmp/work" {
		t.Errorf("round trip mismatch: %+v", got)
	}

	if err := db.UpdateConversationStatus("conv1", models.ConversationCompleted); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ = db.GetConversation("conv1")
	if got.Status != models.ConversationCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}

	if err := db.UpdateConversationStatus("ghost", models.ConversationStopped); err == nil {
		t.Error("updating a missing conversation should fail")
	}

	missing, err := db.GetConversation("ghost")
	if err != nil || missing != nil {
		t.Errorf("missing conversation: got %v, %v; want nil, nil", missing, err)
	}
}

func TestListConversationsFiltersByStatus(t *testing.T) {
	db := openTestDB(t)

	base := time.Now()
	for i, c := range []models.Conversation{
		{ID: "c1", Title: "one", Status: models.ConversationActive},
		{ID: "c2", Title: "two", Status: models.ConversationCompleted},
		{ID: "c3", Title: "three", Status: models.ConversationActive},
	} {
		c.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := db.CreateConversation(&c); err != nil {
			t.Fatal(err)
		}
	}

	all, err := db.ListConversations(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d conversations, want 3", len(all))
	}
	if all[0].ID != "c3" {
		t.Errorf("newest first: got %s, want c3", all[0].ID)
	}

	active := models.ConversationActive
	filtered, err := db.ListConversations(&active)
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 2 {
		t.Errorf("got %d active conversations, want 2", len(filtered))
	}
}

func TestAgentCRUDAndHierarchy(t *testing.T) {
	db := openTestDB(t)

	root := &models.Agent{ID: "a-root", Name: "The Underboss", Role: models.RoleUnderboss, Provider: "anthropic"}
	if err := db.CreateAgent(root); err != nil {
		t.Fatalf("create root: %v", err)
	}
	for i, child := range []string{"a-capo", "a-soldier"} {
		a := &models.Agent{
			ID:       child,
			Name:     child,
			Role:     models.RoleSoldier,
			Provider: "anthropic",
			ParentID: "a-root",
			// Reverse sort order so the ORDER BY is observable.
			SortOrder: 2 - i,
		}
		if err := db.CreateAgent(a); err != nil {
			t.Fatalf("create child: %v", err)
		}
	}

	static, err := db.GetStaticRoot()
	if err != nil {
		t.Fatal(err)
	}
	if static == nil || static.ID != "a-root" {
		t.Errorf("static root = %+v, want a-root", static)
	}

	children, err := db.ListChildren("a-root")
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 2 {
		t.Fatalf("got %d children, want 2", len(children))
	}
	if children[0].ID != "a-soldier" {
		t.Errorf("sibling order: got %s first, want a-soldier (sort_order 1)", children[0].ID)
	}

	got, _ := db.GetAgent("a-capo")
	got.Name = "Renamed"
	got.Specialty = "builds"
	if err := db.UpdateAgent(got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = db.GetAgent("a-capo")
	if got.Name != "Renamed" || got.Specialty != "builds" {
		t.Errorf("update round trip: %+v", got)
	}

	if err := db.UpdateAgent(&models.Agent{ID: "ghost"}); err == nil {
		t.Error("updating a missing agent should fail")
	}
}

func TestDeleteAgentCascadesToChildren(t *testing.T) {
	db := openTestDB(t)

	for _, a := range []models.Agent{
		{ID: "root", Name: "root", Role: models.RoleUnderboss, Provider: "anthropic"},
		{ID: "mid", Name: "mid", Role: models.RoleCapo, Provider: "anthropic", ParentID: "root"},
		{ID: "leaf", Name: "leaf", Role: models.RoleSoldier, Provider: "anthropic", ParentID: "mid"},
	} {
		a := a
		if err := db.CreateAgent(&a); err != nil {
			t.Fatal(err)
		}
	}

	if err := db.DeleteAgent("root"); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"root", "mid", "leaf"} {
		if got, _ := db.GetAgent(id); got != nil {
			t.Errorf("agent %s should be gone after cascade", id)
		}
	}
}

func TestMessageTranscriptOrderAndMetadata(t *testing.T) {
	db := openTestDB(t)

	conv := &models.Conversation{ID: "conv1", Title: "t", Status: models.ConversationActive, CreatedAt: time.Now()}
	if err := db.CreateConversation(conv); err != nil {
		t.Fatal(err)
	}

	base := time.Now()
	msgs := []models.Message{
		{ID: "m1", ConversationID: "conv1", Role: models.MessageRoleUser, Content: "do the thing"},
		{ID: "m2", ConversationID: "conv1", AgentID: "a1", Role: models.MessageRoleAssistant, Content: "on it",
			Metadata: map[string]any{"turn": "1"}},
		{ID: "m3", ConversationID: "conv1", Role: models.MessageRoleSystem, Content: "done"},
	}
	for i, m := range msgs {
		m.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
		if err := db.AppendMessage(&m); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.ListMessages("conv1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d messages, want 3", len(got))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if got[i].ID != want {
			t.Errorf("message %d = %s, want %s", i, got[i].ID, want)
		}
	}
	if got[1].AgentID != "a1" {
		t.Errorf("agent id = %s, want a1", got[1].AgentID)
	}
	if got[1].Metadata["turn"] != "1" {
		t.Errorf("metadata = %v", got[1].Metadata)
	}

	n, err := db.CountMessages("conv1")
	if err != nil || n != 3 {
		t.Errorf("count = %d, %v; want 3, nil", n, err)
	}
}

func TestAnswerEscalationExactlyOnce(t *testing.T) {
	db := openTestDB(t)

	conv := &models.Conversation{ID: "conv1", Title: "t", Status: models.ConversationActive, CreatedAt: time.Now()}
	if err := db.CreateConversation(conv); err != nil {
		t.Fatal(err)
	}
	esc := &models.Escalation{
		ID:             "esc1",
		ConversationID: "conv1",
		AgentID:        "a1",
		Question:       "delete prod?",
		Status:         models.EscalationPending,
		CreatedAt:      time.Now(),
	}
	if err := db.CreateEscalation(esc); err != nil {
		t.Fatal(err)
	}

	ok, err := db.AnswerEscalation("esc1", "no")
	if err != nil || !ok {
		t.Fatalf("first answer: ok=%v err=%v", ok, err)
	}
	ok, err = db.AnswerEscalation("esc1", "yes")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("second answer should lose the conditional update")
	}

	got, _ := db.GetEscalation("esc1")
	if got.Answer != "no" || got.Status != models.EscalationAnswered {
		t.Errorf("escalation = %+v, want first answer kept", got)
	}

	ok, err = db.AnswerEscalation("ghost", "x")
	if err != nil || ok {
		t.Errorf("answering a missing escalation: ok=%v err=%v, want false, nil", ok, err)
	}
}

func TestListPendingEscalations(t *testing.T) {
	db := openTestDB(t)

	conv := &models.Conversation{ID: "conv1", Title: "t", Status: models.ConversationActive, CreatedAt: time.Now()}
	if err := db.CreateConversation(conv); err != nil {
		t.Fatal(err)
	}
	base := time.Now()
	for i, id := range []string{"e1", "e2"} {
		e := &models.Escalation{
			ID: id, ConversationID: "conv1", AgentID: "a1", Question: "q",
			Status: models.EscalationPending, CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := db.CreateEscalation(e); err != nil {
			t.Fatal(err)
		}
	}
	db.AnswerEscalation("e1", "fine")

	pending, err := db.ListPendingEscalations()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != "e2" {
		t.Errorf("pending = %+v, want only e2", pending)
	}
}

func TestDeleteConversationCascades(t *testing.T) {
	db := openTestDB(t)

	conv := &models.Conversation{ID: "conv1", Title: "t", Status: models.ConversationActive, CreatedAt: time.Now()}
	if err := db.CreateConversation(conv); err != nil {
		t.Fatal(err)
	}
	msg := &models.Message{ID: "m1", ConversationID: "conv1", Role: models.MessageRoleUser, Content: "x", CreatedAt: time.Now()}
	if err := db.AppendMessage(msg); err != nil {
		t.Fatal(err)
	}
	esc := &models.Escalation{ID: "e1", ConversationID: "conv1", AgentID: "a1", Question: "q",
		Status: models.EscalationPending, CreatedAt: time.Now()}
	if err := db.CreateEscalation(esc); err != nil {
		t.Fatal(err)
	}
	dyn := &models.Agent{ID: "dyn1", Name: "dyn", Role: models.RoleUnderboss, Provider: "anthropic",
		ConversationID: "conv1", IsDynamic: true}
	if err := db.CreateAgent(dyn); err != nil {
		t.Fatal(err)
	}
	static := &models.Agent{ID: "static1", Name: "static", Role: models.RoleUnderboss, Provider: "anthropic"}
	if err := db.CreateAgent(static); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteConversation("conv1"); err != nil {
		t.Fatal(err)
	}

	if msgs, _ := db.ListMessages("conv1"); len(msgs) != 0 {
		t.Error("messages should cascade")
	}
	if e, _ := db.GetEscalation("e1"); e != nil {
		t.Error("escalations should cascade")
	}
	if a, _ := db.GetAgent("dyn1"); a != nil {
		t.Error("dynamic agents should cascade")
	}
	if a, _ := db.GetAgent("static1"); a == nil {
		t.Error("static agents must survive conversation deletion")
	}
}

func TestRelationshipsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	for _, a := range []models.Agent{
		{ID: "a1", Name: "a1", Role: models.RoleUnderboss, Provider: "anthropic"},
		{ID: "a2", Name: "a2", Role: models.RoleCapo, Provider: "anthropic"},
		{ID: "a3", Name: "a3", Role: models.RoleSoldier, Provider: "anthropic"},
	} {
		a := a
		if err := db.CreateAgent(&a); err != nil {
			t.Fatal(err)
		}
	}
	for _, r := range []models.Relationship{
		{ID: "r1", FromAgentID: "a1", ToAgentID: "a2", Action: models.ActionDelegate},
		{ID: "r2", FromAgentID: "a2", ToAgentID: "a3", Action: models.ActionReview},
	} {
		r := r
		if err := db.CreateRelationship(&r); err != nil {
			t.Fatal(err)
		}
	}

	from, err := db.ListRelationshipsFrom("a1")
	if err != nil {
		t.Fatal(err)
	}
	if len(from) != 1 || from[0].Action != models.ActionDelegate {
		t.Errorf("edges from a1 = %+v", from)
	}

	// Deleting an endpoint removes its edges.
	if err := db.DeleteAgent("a3"); err != nil {
		t.Fatal(err)
	}
	all, err := db.ListRelationships()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].ID != "r1" {
		t.Errorf("edges after endpoint delete = %+v, want only r1", all)
	}
}

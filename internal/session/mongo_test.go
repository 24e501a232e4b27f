package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/crystaldolphin/friday/internal/schema"
)

func messageDoc(t *testing.T, id int64, role schema.Role, content string, meta *schema.Metadata, at time.Time) bson.D {
	t.Helper()
	doc, err := newMessageDocument(id, 1, schema.Message{Role: role, Content: content, Metadata: meta, Timestamp: at})
	if err != nil {
		t.Fatal(err)
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestMongo_MessageDocumentStoresJSONBlob(t *testing.T) {
	doc, err := newMessageDocument(7, 1, schema.NewMessage(schema.RoleAssistant, "done",
		&schema.Metadata{Action: schema.ActionReadFile, File: "main.go", Found: schema.Found(true)}))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Metadata == nil {
		t.Fatal("metadata not stored")
	}
	want, _ := encodeMetadata(&schema.Metadata{Action: schema.ActionReadFile, File: "main.go", Found: schema.Found(true)})
	if *doc.Metadata != want {
		t.Errorf("metadata = %s, want %s", *doc.Metadata, want)
	}

	plain, err := newMessageDocument(8, 1, schema.NewMessage(schema.RoleUser, "hi", nil))
	if err != nil {
		t.Fatal(err)
	}
	if plain.Metadata != nil {
		t.Errorf("empty metadata stored as %q", *plain.Metadata)
	}
}

func TestMongo_LoadMessages(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	base := time.Unix(1700000000, 0)

	mt.Run("newest window comes back oldest first", func(mt *mtest.T) {
		s := newMongoStore(mt.Client, mt.DB, nil)
		ns := mt.DB.Name() + "." + messagesCollection

		// The query sorts newest first; the server answers in that order.
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			messageDoc(mt.T, 3, schema.RoleAssistant, "third", &schema.Metadata{Action: schema.ActionGenerate}, base.Add(2*time.Second)),
			messageDoc(mt.T, 2, schema.RoleUser, "second", nil, base.Add(time.Second)),
			messageDoc(mt.T, 1, schema.RoleUser, "first", nil, base),
		))

		got, err := s.LoadMessages(context.Background(), 1, Query{Limit: 3})
		if err != nil {
			mt.Fatalf("LoadMessages: %v", err)
		}
		if len(got) != 3 {
			mt.Fatalf("got %d messages, want 3", len(got))
		}
		for i, want := range []string{"first", "second", "third"} {
			if got[i].Content != want || got[i].ID != int64(i+1) {
				mt.Errorf("message %d = %d %q, want %d %q", i, got[i].ID, got[i].Content, i+1, want)
			}
		}
		if got[2].Action() != schema.ActionGenerate {
			mt.Errorf("metadata = %+v", got[2].Metadata)
		}
		if got[0].Metadata != nil {
			mt.Errorf("empty metadata decoded as %+v", got[0].Metadata)
		}
		if !got[0].Timestamp.Equal(base) {
			mt.Errorf("timestamp = %v, want %v", got[0].Timestamp, base)
		}
	})

	mt.Run("oldest query keeps server order", func(mt *mtest.T) {
		s := newMongoStore(mt.Client, mt.DB, nil)
		ns := mt.DB.Name() + "." + messagesCollection

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			messageDoc(mt.T, 1, schema.RoleSystem, "sys", nil, base),
		))

		got, err := s.LoadMessages(context.Background(), 1, Query{Limit: 1, Oldest: true})
		if err != nil {
			mt.Fatalf("LoadMessages: %v", err)
		}
		if len(got) != 1 || got[0].Role != schema.RoleSystem {
			mt.Errorf("got %+v", got)
		}
	})

	mt.Run("server error is a storage error", func(mt *mtest.T) {
		s := newMongoStore(mt.Client, mt.DB, nil)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad query",
			Name:    "BadValue",
		}))

		_, err := s.LoadMessages(context.Background(), 1, Query{})
		if !errors.Is(err, schema.ErrStorage) {
			mt.Errorf("err = %v, want storage error", err)
		}
	})
}

func TestMongo_GetSessionNotFound(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("missing", func(mt *mtest.T) {
		s := newMongoStore(mt.Client, mt.DB, nil)
		ns := mt.DB.Name() + "." + sessionsCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := s.GetSession(context.Background(), 42)
		if !errors.Is(err, ErrSessionNotFound) {
			mt.Errorf("err = %v, want ErrSessionNotFound", err)
		}
	})
}

package app

import (
	"encoding/json"
	"testing"
)

func TestOptionalDistinguishesOmittedFromNull(t *testing.T) {
	var body struct {
		Title    Optional[string] `json:"title"`
		ParentID Optional[string] `json:"parentId"`
		DueDate  Optional[string] `json:"dueDate"`
	}
	payload := `{"title":"New name","parentId":null}`
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !body.Title.Set || !body.Title.Valid || body.Title.Value != "New name" {
		t.Fatalf("expected title set and valid, got %+v", body.Title)
	}
	if !body.ParentID.Set || body.ParentID.Valid {
		t.Fatalf("expected parentId set but null, got %+v", body.ParentID)
	}
	if body.DueDate.Set {
		t.Fatalf("expected dueDate omitted, got %+v", body.DueDate)
	}
}

func TestOptionalRejectsWrongType(t *testing.T) {
	var body struct {
		Order Optional[int] `json:"order"`
	}
	if err := json.Unmarshal([]byte(`{"order":"three"}`), &body); err == nil {
		t.Fatal("expected type error")
	}
}

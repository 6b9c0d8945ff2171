package channels

import "testing"

func TestPickRandomOtherExcludesCaller(t *testing.T) {
	members := []Member{{UserID: "a"}, {UserID: "b"}, {UserID: "c"}}
	for i := 0; i < 20; i++ {
		m, err := pickRandomOther(members, "a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.UserID == "a" {
			t.Fatal("expected excluded user never to be picked")
		}
	}
}

func TestPickRandomOtherErrorsWhenNoOthers(t *testing.T) {
	members := []Member{{UserID: "a"}}
	if _, err := pickRandomOther(members, "a"); err == nil {
		t.Fatal("expected an error when no other members exist")
	}
}

func TestPickRandomOtherSingleCandidate(t *testing.T) {
	members := []Member{{UserID: "a"}, {UserID: "b"}}
	m, err := pickRandomOther(members, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.UserID != "b" {
		t.Fatalf("expected the only other member b, got %s", m.UserID)
	}
}

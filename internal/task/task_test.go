package task

import "testing"

func TestFilterFromQuery(t *testing.T) {
	cases := map[string]Filter{
		"all":       FilterAll,
		"pending":   FilterPending,
		"completed": FilterCompleted,
		"":          FilterAll,
		"bogus":     FilterAll,
	}
	for value, want := range cases {
		if got := FilterFromQuery(value); got != want {
			t.Errorf("FilterFromQuery(%q) = %q, want %q", value, got, want)
		}
	}
}

func TestListScopeAlwaysScopedToOwner(t *testing.T) {
	for _, filter := range []Filter{FilterAll, FilterPending, FilterCompleted} {
		query := listScope("owner-1", filter)
		if query["user_id"] != "owner-1" {
			t.Fatalf("listScope(%q) missing owner scoping: %v", filter, query)
		}
	}
}

func TestListScopeStatusConstraint(t *testing.T) {
	all := listScope("owner-1", FilterAll)
	if _, ok := all["status"]; ok {
		t.Fatalf("all filter must not constrain status: %v", all)
	}

	pending := listScope("owner-1", FilterPending)
	if pending["status"] != StatusPending {
		t.Fatalf("pending filter status = %v, want %q", pending["status"], StatusPending)
	}

	completed := listScope("owner-1", FilterCompleted)
	if completed["status"] != StatusCompleted {
		t.Fatalf("completed filter status = %v, want %q", completed["status"], StatusCompleted)
	}

	// pending と completed は互いに素で、合わせると all になる
	if pending["status"] == completed["status"] {
		t.Fatal("pending and completed filters must be disjoint")
	}
}

func TestOwnerScopeRequiresBothKeys(t *testing.T) {
	query := ownerScope("task-1", "owner-1")
	if query["_id"] != "task-1" {
		t.Fatalf("ownerScope missing task id: %v", query)
	}
	if query["user_id"] != "owner-1" {
		t.Fatalf("ownerScope missing owner id: %v", query)
	}
}

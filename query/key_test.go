package query

import "testing"

type listFilter struct {
	Status string `json:"status,omitempty"`
	Tag    string `json:"tag,omitempty"`
	Page   int    `json:"page,omitempty"`
}

func TestKey_StructuralEquality(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Key
		equal bool
	}{
		{
			name:  "map ordering ignored",
			a:     Key{"experiments", "list", map[string]any{"status": "LIVE", "tag": "x"}},
			b:     Key{"experiments", "list", map[string]any{"tag": "x", "status": "LIVE"}},
			equal: true,
		},
		{
			name:  "struct equals map with same content",
			a:     Key{"experiments", "list", listFilter{Status: "LIVE", Page: 2}},
			b:     Key{"experiments", "list", map[string]any{"page": 2, "status": "LIVE"}},
			equal: true,
		},
		{
			name:  "nested maps",
			a:     Key{"x", map[string]any{"outer": map[string]any{"b": 1, "a": 2}}},
			b:     Key{"x", map[string]any{"outer": map[string]any{"a": 2, "b": 1}}},
			equal: true,
		},
		{
			name:  "int and float forms of a number",
			a:     Key{"experiments", "detail", 42},
			b:     Key{"experiments", "detail", 42.0},
			equal: true,
		},
		{
			name: "string and number differ",
			a:    Key{"experiments", "detail", "42"},
			b:    Key{"experiments", "detail", 42},
		},
		{
			name: "slice order matters",
			a:    Key{"x", []any{1, 2}},
			b:    Key{"x", []any{2, 1}},
		},
		{
			name: "length differs",
			a:    Key{"experiments"},
			b:    Key{"experiments", "list"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal = %v, want %v (%s vs %s)", got, tt.equal, tt.a, tt.b)
			}
			if got := tt.a.String() == tt.b.String(); got != tt.equal {
				t.Errorf("String equality = %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestKey_HasPrefix(t *testing.T) {
	list := Key{"experiments", "list", map[string]any{}}
	detail := Key{"experiments", "detail", "42"}
	tenants := Key{"tenants", "list"}

	tests := []struct {
		key    Key
		prefix Key
		want   bool
	}{
		{list, Key{"experiments"}, true},
		{detail, Key{"experiments"}, true},
		{tenants, Key{"experiments"}, false},
		{list, Key{"experiments", "list"}, true},
		{detail, Key{"experiments", "list"}, false},
		{detail, detail, true},
		{detail, Key{}, true},
		{Key{"experiments"}, Key{"experiments", "list"}, false},
	}
	for _, tt := range tests {
		if got := tt.key.HasPrefix(tt.prefix); got != tt.want {
			t.Errorf("%s.HasPrefix(%s) = %v, want %v", tt.key, tt.prefix, got, tt.want)
		}
	}
}

func TestKey_String(t *testing.T) {
	k := Key{"experiments", "list", map[string]any{"status": "LIVE", "limit": 20}}
	want := `["experiments","list",{"limit":20,"status":"LIVE"}]`
	if got := k.String(); got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}

func TestKey_UnencodableElement(t *testing.T) {
	ch := make(chan int)
	k := Key{"x", ch}
	if k.String() != k.String() {
		t.Fatal("String must be deterministic")
	}
	if !k.HasPrefix(Key{"x"}) {
		t.Error("prefix should still match")
	}
}

func TestKey_Scope(t *testing.T) {
	if got := (Key{"experiments", "list"}).Scope(); got != "experiments" {
		t.Errorf("Scope = %q", got)
	}
	if got := (Key{}).Scope(); got != "" {
		t.Errorf("Scope of empty key = %q", got)
	}
	if got := (Key{7}).Scope(); got != "7" {
		t.Errorf("Scope = %q", got)
	}
}

package element

import "testing"

func TestStructuralIdentity(t *testing.T) {
	a := NewMethod("com/acme/A", "m", "()V")
	b := Method{Owner: Class{Owner: "com/acme/A"}, Name: "m", Descriptor: "()V"}
	if a != b {
		t.Fatalf("expected independently built methods to be equal")
	}

	var ea, eb Element = a, b
	if ea != eb {
		t.Fatalf("expected interface values with equal dynamic values to be equal")
	}

	overload := NewMethod("com/acme/A", "m", "(I)V")
	if a == overload {
		t.Fatalf("methods with different descriptors must differ")
	}

	// A class and a field of the same owner are never equal.
	var cls Element = NewClass("com/acme/A")
	var fld Element = NewField("com/acme/A", "m")
	if cls == fld {
		t.Fatalf("class and field must not compare equal")
	}
}

func TestDeclaringClass(t *testing.T) {
	owner := NewClass("com/acme/A")
	cases := []Element{
		owner,
		NewMethod("com/acme/A", "run", "()V"),
		NewField("com/acme/A", "count"),
	}
	for _, e := range cases {
		if e.DeclaringClass() != owner {
			t.Errorf("%s: expected declaring class %s, got %s", e, owner, e.DeclaringClass())
		}
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		element Element
		want    string
	}{
		{NewClass("com/acme/Outer$Inner"), "com.acme.Outer$Inner"},
		{NewMethod("com/acme/A", "m", "(Ljava/lang/String;)I"), "com.acme.A#m(Ljava/lang/String;)I"},
		{NewField("com/acme/A", "f"), "com.acme.A#f"},
	}
	for _, tt := range tests {
		if got := tt.element.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestSet(t *testing.T) {
	s := NewSet()
	if !s.Add(NewField("com/acme/A", "f")) {
		t.Fatalf("expected first add to report insertion")
	}
	if s.Add(NewField("com/acme/A", "f")) {
		t.Fatalf("expected duplicate add to be a no-op")
	}
	s.Add(NewClass("com/acme/B"))
	s.Add(NewMethod("com/acme/A", "m", "()V"))

	if s.Len() != 3 {
		t.Fatalf("expected 3 elements, got %d", s.Len())
	}
	if !s.Contains(NewMethod("com/acme/A", "m", "()V")) {
		t.Fatalf("expected reconstructed method to be found")
	}
	if s.Contains(NewMethod("com/acme/A", "m", "(I)V")) {
		t.Fatalf("did not expect overload to be found")
	}

	got := s.Elements()
	want := []string{"com.acme.A#f", "com.acme.A#m()V", "com.acme.B"}
	for i, e := range got {
		if e.String() != want[i] {
			t.Fatalf("Elements()[%d] = %s, want %s", i, e, want[i])
		}
	}

	var nilSet *Set
	if nilSet.Contains(NewClass("x")) || nilSet.Len() != 0 {
		t.Fatalf("nil set must behave as empty")
	}
}

func TestSimpleName(t *testing.T) {
	tests := map[string]string{
		"com.google.common.annotations.VisibleForTesting": "VisibleForTesting",
		"Lcom/acme/Private;":                              "Private",
		"com/acme/Outer$Inner":                            "Inner",
		"Local":                                           "Local",
	}
	for in, want := range tests {
		if got := SimpleName(in); got != want {
			t.Errorf("SimpleName(%q) = %q, want %q", in, got, want)
		}
	}
}

package idgen

import (
	"regexp"
	"testing"
)

func TestKinds(t *testing.T) {
	for _, tc := range []struct {
		name   string
		gen    func() (string, error)
		prefix string
	}{
		{"backup", Backup, BackupPrefix},
		{"event", Event, EventPrefix},
	} {
		t.Run(tc.name, func(t *testing.T) {
			id, err := tc.gen()
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(tc.prefix) + `[a-zA-Z0-9]{` + "12" + `}$`)
			if !pattern.MatchString(id) {
				t.Fatalf("id %q does not match %s", id, pattern)
			}
		})
	}
}

func TestWithPrefix_Length(t *testing.T) {
	id, err := WithPrefix("x-")
	if err != nil {
		t.Fatalf("WithPrefix error: %v", err)
	}
	if want := len("x-") + Length; len(id) != want {
		t.Errorf("length = %d, want %d (id=%q)", len(id), want, id)
	}
}

func TestUniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id, err := Backup()
		if err != nil {
			t.Fatalf("Backup() error on iteration %d: %v", i, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

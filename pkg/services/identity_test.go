package services

import (
	"testing"

	"github.com/cOsMiCTr/famhub-backend/pkg/database"
	"github.com/cOsMiCTr/famhub-backend/pkg/models"
)

func TestResolve(t *testing.T) {
	db := database.NewMemoryDatabase()
	user := &models.User{Email: "carol@famhub.test", Name: "Carol"}
	if err := db.CreateUser(user); err != nil {
		t.Fatal(err)
	}
	resolver := NewIdentityResolver(db)

	tests := []struct {
		name  string
		email string
		want  bool
	}{
		{"exact match", "carol@famhub.test", true},
		{"different case", "CAROL@FAMHUB.TEST", true},
		{"surrounding whitespace", "  Carol@Famhub.Test  ", true},
		{"no match", "dave@famhub.test", false},
		{"empty email", "", false},
		{"whitespace only", "   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.Resolve(&models.ExternalPerson{Email: tt.email})
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.email, err)
			}
			if (got != nil) != tt.want {
				t.Errorf("Resolve(%q) matched = %v, want %v", tt.email, got != nil, tt.want)
			}
			if got != nil && got.ID != user.ID {
				t.Errorf("Resolve(%q) = %s, want %s", tt.email, got.ID, user.ID)
			}
		})
	}
}

func TestResolveIsLive(t *testing.T) {
	db := database.NewMemoryDatabase()
	resolver := NewIdentityResolver(db)
	person := &models.ExternalPerson{Email: "late@famhub.test"}

	if got, err := resolver.Resolve(person); err != nil || got != nil {
		t.Fatalf("before registration: got %v, %v; want nil, nil", got, err)
	}

	if err := db.CreateUser(&models.User{Email: "late@famhub.test"}); err != nil {
		t.Fatal(err)
	}

	got, err := resolver.Resolve(person)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Error("person did not become resolvable after the account registered")
	}
}

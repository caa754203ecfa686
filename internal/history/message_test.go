package history

import (
	"testing"

	"github.com/starford/othala/internal/models"
)

func TestCommitOpMessage(t *testing.T) {
	cases := []struct {
		name string
		op   CommitOp
		want string
	}{
		{"create", CommitOp{Action: models.ActionCreate, Title: "Groceries"}, "[create] Groceries"},
		{"update", CommitOp{Action: models.ActionUpdate, Title: "Groceries"}, "[update] Groceries"},
		{"delete", CommitOp{Action: models.ActionDelete, Title: "Groceries"}, "[delete] Groceries"},
		{
			"rename",
			CommitOp{Action: models.ActionRename, Title: "Weekly Shop", OldTitle: "Groceries"},
			`[rename] "Groceries" -> "Weekly Shop"`,
		},
		{
			"move",
			CommitOp{Action: models.ActionMove, Title: "Groceries", OldCategory: "home", NewCategory: "errands"},
			"[move] Groceries: home -> errands",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.op.Message(); got != tc.want {
				t.Errorf("Message() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseMessage(t *testing.T) {
	cases := []struct {
		msg       string
		wantAct   models.Action
		wantTitle string
	}{
		{"[create] Groceries", models.ActionCreate, "Groceries"},
		{"[delete] Groceries", models.ActionDelete, "Groceries"},
		{`[rename] "A" -> "B"`, models.ActionRename, `"A" -> "B"`},
		{"[move] T: home -> work", models.ActionMove, "T: home -> work"},
		{"[update]", models.ActionUpdate, ""},
		// Foreign messages degrade to update with the raw text as title.
		{"Initial import", models.ActionUpdate, "Initial import"},
		{"[unknown] thing", models.ActionUpdate, "[unknown] thing"},
	}
	for _, tc := range cases {
		act, title := ParseMessage(tc.msg)
		if act != tc.wantAct || title != tc.wantTitle {
			t.Errorf("ParseMessage(%q) = (%q, %q), want (%q, %q)",
				tc.msg, act, title, tc.wantAct, tc.wantTitle)
		}
	}
}

func TestValidateHash(t *testing.T) {
	for _, ok := range []string{"abc1234", "ABCDEF0123456789abcdef0123456789abcdef01"} {
		if err := ValidateHash(ok); err != nil {
			t.Errorf("ValidateHash(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"", "abc123", "HEAD", "main", "abc1234; rm -rf /", "--help", "deadbeefg"} {
		if err := ValidateHash(bad); err == nil {
			t.Errorf("ValidateHash(%q) accepted", bad)
		}
	}
}

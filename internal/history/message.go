package history

import (
	"fmt"
	"regexp"

	"github.com/starford/othala/internal/models"
)

// messageRe is the fixed commit-message grammar. Messages that do not
// match are treated as action=update with the whole message as title,
// keeping pre-existing history readable.
var messageRe = regexp.MustCompile(`^\[(create|update|rename|move|delete)\]\s*(.*)$`)

// CommitOp describes one journal entry to record.
type CommitOp struct {
	Action models.Action
	Title  string

	// OldTitle is set for rename operations.
	OldTitle string
	// OldCategory and NewCategory are set for move operations.
	OldCategory string
	NewCategory string
}

// Message renders the commit message for this operation.
func (op CommitOp) Message() string {
	switch op.Action {
	case models.ActionRename:
		return fmt.Sprintf("[rename] %q -> %q", op.OldTitle, op.Title)
	case models.ActionMove:
		return fmt.Sprintf("[move] %s: %s -> %s", op.Title, op.OldCategory, op.NewCategory)
	default:
		return fmt.Sprintf("[%s] %s", op.Action, op.Title)
	}
}

// ParseMessage extracts the action tag and title from a commit message.
func ParseMessage(msg string) (models.Action, string) {
	if m := messageRe.FindStringSubmatch(msg); m != nil {
		return models.Action(m[1]), m[2]
	}
	return models.ActionUpdate, msg
}

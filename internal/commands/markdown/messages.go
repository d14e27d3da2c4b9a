package markdowncmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

const importPostsMessageType = "press.markdown.import_posts"

// ImportPostsCommand imports every Markdown document below Directory as a
// post. Documents already imported are skipped.
type ImportPostsCommand struct {
	Directory string `json:"directory"`
	// AuthorID is recorded on created posts. Defaults to the system actor.
	AuthorID uuid.UUID `json:"author_id,omitempty"`
	// DryRun reports what would be imported without writing.
	DryRun bool `json:"dry_run,omitempty"`
}

// Type implements command.Message.
func (ImportPostsCommand) Type() string { return importPostsMessageType }

func (cmd ImportPostsCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.Directory, validation.Required, validation.By(func(value any) error {
			if strings.TrimSpace(value.(string)) == "" {
				return validation.NewError("press.markdown.import_posts.directory_required", "directory is required")
			}
			return nil
		})),
	)
}

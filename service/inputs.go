package service

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/goliatone/go-forum-cache/forum"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// notBlank rejects strings made only of whitespace. Empty and nil values are
// left to Required and NilOrNotEmpty.
var notBlank = validation.By(func(value any) error {
	value, isNil := validation.Indirect(value)
	s, ok := value.(string)
	if !isNil && ok && s != "" && strings.TrimSpace(s) == "" {
		return validation.NewError("validation_not_blank", "cannot be blank")
	}
	return nil
})

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required, validation.Length(3, 64), validation.Match(usernamePattern)),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required, validation.Length(8, 128)),
	)
}

type LoginInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required),
		validation.Field(&in.Email, validation.Required),
		validation.Field(&in.Password, validation.Required),
	)
}

type SubredditInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (in SubredditInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, notBlank, validation.Length(1, 120)),
		validation.Field(&in.Description, validation.Required, notBlank, validation.Length(1, 240)),
	)
}

// SubredditPatch changes only the fields that are set.
type SubredditPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (in SubredditPatch) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.NilOrNotEmpty, notBlank, validation.Length(1, 120)),
		validation.Field(&in.Description, validation.NilOrNotEmpty, notBlank, validation.Length(1, 240)),
	)
}

type PostInput struct {
	SubredditID int64  `json:"subreddit_id"`
	Title       string `json:"title"`
	Text        string `json:"text"`
}

func (in PostInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.SubredditID, validation.Required, validation.Min(int64(1))),
		validation.Field(&in.Title, validation.Required, notBlank, validation.Length(1, 200)),
		validation.Field(&in.Text, validation.Required, notBlank, validation.Length(1, 1000)),
	)
}

// PostPatch changes only the fields that are set. Setting SubredditID moves
// the post.
type PostPatch struct {
	SubredditID *int64  `json:"subreddit_id"`
	Title       *string `json:"title"`
	Text        *string `json:"text"`
}

func (in PostPatch) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.SubredditID, validation.NilOrNotEmpty, validation.Min(int64(1))),
		validation.Field(&in.Title, validation.NilOrNotEmpty, notBlank, validation.Length(1, 200)),
		validation.Field(&in.Text, validation.NilOrNotEmpty, notBlank, validation.Length(1, 1000)),
	)
}

type CommentInput struct {
	Comment  string `json:"comment"`
	ParentID *int64 `json:"parent_id"`
}

func (in CommentInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Comment, validation.Required, notBlank, validation.Length(1, 1000)),
		validation.Field(&in.ParentID, validation.NilOrNotEmpty, validation.Min(int64(1))),
	)
}

type valid interface {
	Validate() error
}

func validate(in valid) error {
	if err := in.Validate(); err != nil {
		return fmt.Errorf("%w: %v", forum.ErrInvalidInput, err)
	}
	return nil
}

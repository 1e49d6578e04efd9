// Package command defines the typed edit commands that forms submit, so the
// graph core never receives an untyped payload.
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dan-solli/kinship/pkg/graph"
	"github.com/dan-solli/kinship/pkg/person"
)

// ErrValidation wraps field-level validation failures.
var ErrValidation = errors.New("validation failed")

// ErrUnknownSubject indicates a command about a person that is not loaded.
var ErrUnknownSubject = errors.New("subject is not loaded")

// ErrSpouseLimit indicates the subject already has the maximum number of spouses.
var ErrSpouseLimit = errors.New("spouse limit reached")

// ErrParentLimit indicates the subject already has two parents.
var ErrParentLimit = errors.New("parent limit reached")

// Kind identifies a command variant on the wire.
type Kind string

const (
	KindAddParent  Kind = "addParent"
	KindAddChild   Kind = "addChild"
	KindAddSibling Kind = "addSibling"
	KindAddSpouse  Kind = "addSpouse"
	KindUpdateBio  Kind = "updateBio"
	KindRemoveNode Kind = "removeNode"
)

// Command is implemented by every variant.
type Command interface {
	Kind() Kind
	// Subject is the loaded person the command is issued from.
	Subject() string
}

// NameInput is the name part of a new or edited person.
type NameInput struct {
	First     string   `json:"first" validate:"required,max=100"`
	Middle    string   `json:"middle,omitempty" validate:"max=100"`
	Last      string   `json:"last,omitempty" validate:"max=100"`
	Nicknames []string `json:"nicknames,omitempty" validate:"max=10,dive,required,max=100"`
	// Selected indexes Nicknames; nil selects none.
	Selected *int `json:"selected,omitempty" validate:"omitempty,min=0"`
}

// DateInput is a partial date.
type DateInput struct {
	Day   *int `json:"day,omitempty" validate:"omitempty,min=1,max=31"`
	Month *int `json:"month,omitempty" validate:"omitempty,min=1,max=12"`
	Year  *int `json:"year,omitempty" validate:"omitempty,min=1,max=9999"`
}

// EventInput is a birth or death record.
type EventInput struct {
	Date    *DateInput `json:"date,omitempty"`
	Country string     `json:"country,omitempty" validate:"max=100"`
	City    string     `json:"city,omitempty" validate:"max=100"`
}

// PersonInput describes the person being created.
type PersonInput struct {
	Name            NameInput   `json:"name"`
	Gender          string      `json:"gender" validate:"required,oneof=male female"`
	Birth           *EventInput `json:"birth,omitempty"`
	Death           *EventInput `json:"death,omitempty"`
	ProfileImageURL string      `json:"profileImageURL,omitempty" validate:"omitempty,url"`
}

// AddParent adds a parent to ChildID.
type AddParent struct {
	ChildID string      `json:"childId" validate:"required"`
	Type    string      `json:"type" validate:"required,oneof=blood adopted"`
	Person  PersonInput `json:"person"`
}

// AddChild adds a child to ParentID, optionally shared with a spouse.
type AddChild struct {
	ParentID string      `json:"parentId" validate:"required"`
	SpouseID string      `json:"spouseId,omitempty" validate:"omitempty,nefield=ParentID"`
	Type     string      `json:"type" validate:"required,oneof=blood adopted"`
	Person   PersonInput `json:"person"`
}

// AddSibling adds a sibling to SiblingOf.
type AddSibling struct {
	SiblingOf string      `json:"siblingOf" validate:"required"`
	Type      string      `json:"type" validate:"required,oneof=blood"`
	Person    PersonInput `json:"person"`
}

// AddSpouse adds a spouse to SpouseOf.
type AddSpouse struct {
	SpouseOf string      `json:"spouseOf" validate:"required"`
	Type     string      `json:"type" validate:"required,oneof=married divorced"`
	Person   PersonInput `json:"person"`
}

// UpdateBio replaces the biographical fields of ID.
type UpdateBio struct {
	ID              string      `json:"id" validate:"required"`
	Name            NameInput   `json:"name"`
	Gender          string      `json:"gender,omitempty" validate:"omitempty,oneof=male female"`
	Birth           *EventInput `json:"birth,omitempty"`
	Death           *EventInput `json:"death,omitempty"`
	ProfileImageURL string      `json:"profileImageURL,omitempty" validate:"omitempty,url"`
}

// RemoveNode deletes ID from the tree.
type RemoveNode struct {
	ID string `json:"id" validate:"required"`
}

func (AddParent) Kind() Kind  { return KindAddParent }
func (AddChild) Kind() Kind   { return KindAddChild }
func (AddSibling) Kind() Kind { return KindAddSibling }
func (AddSpouse) Kind() Kind  { return KindAddSpouse }
func (UpdateBio) Kind() Kind  { return KindUpdateBio }
func (RemoveNode) Kind() Kind { return KindRemoveNode }

func (c AddParent) Subject() string  { return c.ChildID }
func (c AddChild) Subject() string   { return c.ParentID }
func (c AddSibling) Subject() string { return c.SiblingOf }
func (c AddSpouse) Subject() string  { return c.SpouseOf }
func (c UpdateBio) Subject() string  { return c.ID }
func (c RemoveNode) Subject() string { return c.ID }

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the command's field constraints.
func Validate(cmd Command) error {
	if cmd == nil {
		return fmt.Errorf("%w: nil command", ErrValidation)
	}
	if err := validate.Struct(cmd); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := fieldPath(e.Namespace())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, strings.ToLower(e.Param()))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// fieldPath turns "AddParent.Person.Name.First" into "person.name.first".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}

// Check enforces business rules against the loaded graph. It assumes the
// command already passed Validate.
func Check(g *graph.Graph, cmd Command) error {
	subject, ok := g.Node(cmd.Subject())
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSubject, cmd.Subject())
	}

	switch c := cmd.(type) {
	case AddParent:
		if len(subject.Parents) >= 2 {
			return fmt.Errorf("%w: %s already has %d parents", ErrParentLimit, subject.ID, len(subject.Parents))
		}
	case AddSpouse:
		if c.Type == string(person.EdgeMarried) && subject.Metadata.TotalSpouses >= subject.Metadata.MaxSpouses {
			return fmt.Errorf("%w: %s has %d of %d", ErrSpouseLimit, subject.ID,
				subject.Metadata.TotalSpouses, subject.Metadata.MaxSpouses)
		}
	case AddChild:
		if c.SpouseID != "" && !subject.HasEdge(person.KindSpouses, c.SpouseID) {
			return fmt.Errorf("%w: %s is not a spouse of %s", ErrUnknownSubject, c.SpouseID, subject.ID)
		}
	}
	return nil
}

// Envelope is the wire form of a command.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps cmd in an Envelope.
func Encode(cmd Command) ([]byte, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", cmd.Kind(), err)
	}
	return json.Marshal(Envelope{Kind: cmd.Kind(), Payload: payload})
}

// Decode parses an Envelope back into its typed command and validates it.
func Decode(data []byte) (Command, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	var cmd Command
	var err error
	switch env.Kind {
	case KindAddParent:
		cmd, err = decodeAs[AddParent](env.Payload)
	case KindAddChild:
		cmd, err = decodeAs[AddChild](env.Payload)
	case KindAddSibling:
		cmd, err = decodeAs[AddSibling](env.Payload)
	case KindAddSpouse:
		cmd, err = decodeAs[AddSpouse](env.Payload)
	case KindUpdateBio:
		cmd, err = decodeAs[UpdateBio](env.Payload)
	case KindRemoveNode:
		cmd, err = decodeAs[RemoveNode](env.Payload)
	default:
		return nil, fmt.Errorf("%w: unknown command kind %q", ErrValidation, env.Kind)
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

func decodeAs[T Command](payload json.RawMessage) (Command, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", v.Kind(), err)
	}
	return v, nil
}

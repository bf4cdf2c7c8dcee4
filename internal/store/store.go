// Package store exposes the transactional data store behind two
// primitives: a declarative query and a multi-step transact. Queries and
// steps are built as typed values rather than untyped nested maps so the
// callers' store interactions stay type-checked.
package store

import (
	"context"
	"encoding/json"
)

// Entity type names used by the sharing subsystem.
const (
	EntityFamily     = "families"
	EntityMember     = "familyMembers"
	EntityInvitation = "familyInvitations"
)

// RelationFamily attaches a member or invitation to its family. The link
// is what the store's own permission rules consume; record fields carry
// the same id for querying.
const RelationFamily = "family"

// Filter is an equality predicate on a record field.
type Filter struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// LinkFilter matches records linked to a target entity via a relation.
type LinkFilter struct {
	Relation string `json:"relation"`
	TargetID string `json:"targetId"`
}

// Query describes a declarative read against one entity type.
type Query struct {
	Entity    string      `json:"entity"`
	Where     []Filter    `json:"where,omitempty"`
	WhereLink *LinkFilter `json:"whereLink,omitempty"`
}

// StepOp tags a transact step variant.
type StepOp string

const (
	OpUpdate StepOp = "update"
	OpLink   StepOp = "link"
	OpDelete StepOp = "delete"
)

// Step is one operation inside a transact call.
type Step struct {
	Op       StepOp         `json:"op"`
	Entity   string         `json:"entity"`
	ID       string         `json:"id"`
	Fields   map[string]any `json:"fields,omitempty"`
	Relation string         `json:"relation,omitempty"`
	TargetID string         `json:"targetId,omitempty"`
}

// Update upserts a record by id, merging fields into any existing data.
func Update(entity, id string, fields map[string]any) Step {
	return Step{Op: OpUpdate, Entity: entity, ID: id, Fields: fields}
}

// Link attaches a record to a target entity via a named relation.
func Link(entity, id, relation, targetID string) Step {
	return Step{Op: OpLink, Entity: entity, ID: id, Relation: relation, TargetID: targetID}
}

// Delete removes a record and its outgoing links.
func Delete(entity, id string) Step {
	return Step{Op: OpDelete, Entity: entity, ID: id}
}

// Record is a raw store record, decoded by the caller into its model type.
type Record = json.RawMessage

// Store is the transactional data store collaborator.
type Store interface {
	Query(ctx context.Context, q Query) ([]Record, error)
	Transact(ctx context.Context, steps []Step) error
}

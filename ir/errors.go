package ir

import (
	"fmt"
	"strings"
)

// StructureError reports malformed document nesting, e.g. an item header
// before any module header. Fatal for the document.
type StructureError struct {
	Line int
	Msg  string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("structure error at line %d: %s", e.Line, e.Msg)
}

// ValidationError reports a bad metadata value on a named item. Fatal for the
// document.
type ValidationError struct {
	Line  int
	Item  string
	Field string
	Value string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error at line %d (item %q, field %q): %s", e.Line, e.Item, e.Field, e.Msg)
}

// UnresolvedLink is a single internal reference that could not be matched to
// exactly one item, either because nothing matched or because the title is
// ambiguous within its type.
type UnresolvedLink struct {
	TargetType string
	TargetName string
	Reason     string
}

func (u UnresolvedLink) String() string {
	return fmt.Sprintf("[[%s:%s]]: %s", u.TargetType, u.TargetName, u.Reason)
}

// UnresolvedLinkError collects every failed internal reference across the
// whole document so the author fixes them in one pass.
type UnresolvedLinkError struct {
	Links []UnresolvedLink
}

func (e *UnresolvedLinkError) Error() string {
	parts := make([]string, 0, len(e.Links))
	for _, l := range e.Links {
		parts = append(parts, l.String())
	}
	return fmt.Sprintf("%d unresolved internal link(s): %s", len(e.Links), strings.Join(parts, "; "))
}

// SyncError reports a failed remote operation for one entity. Non-fatal to
// the batch; the engine continues with independent items.
type SyncError struct {
	Entity string
	Title  string
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync failed for %s %q: %v", e.Entity, e.Title, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

func TestSession_Constraints(t *testing.T) {
	typ := reflect.TypeOf(Session{})
	assertGormTag(t, typ, "SessionID", "uniqueIndex")
	assertGormTag(t, typ, "Phone", "index")
	assertGormTag(t, typ, "AssignedAgent", "not null")

	// Phone and CounterValue must be nullable: a session can exist before
	// any phone is known, and sentinel assignments carry no counter value.
	if f, _ := typ.FieldByName("Phone"); f.Type.Kind() != reflect.Ptr {
		t.Errorf("Session.Phone type = %s, want pointer", f.Type)
	}
	if f, _ := typ.FieldByName("CounterValue"); f.Type.Kind() != reflect.Ptr {
		t.Errorf("Session.CounterValue type = %s, want pointer", f.Type)
	}
}

func TestLead_PhoneIsDedupKey(t *testing.T) {
	typ := reflect.TypeOf(Lead{})
	assertGormTag(t, typ, "Phone", "uniqueIndex")
	assertGormTag(t, typ, "Status", "default:pending")
}

func TestRotationCounter_UniqueName(t *testing.T) {
	typ := reflect.TypeOf(RotationCounter{})
	assertGormTag(t, typ, "Name", "uniqueIndex")
	assertGormTag(t, typ, "Value", "default:0")
}

func TestAgent_RosterFields(t *testing.T) {
	typ := reflect.TypeOf(Agent{})
	assertGormTag(t, typ, "Name", "uniqueIndex")
	assertGormTag(t, typ, "Active", "default:true")
}

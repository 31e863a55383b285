package objectstore

import "testing"

func TestProfileKey(t *testing.T) {
	if got := ProfileKey("u123"); got != "profiles/u123.json" {
		t.Errorf("ProfileKey(u123) = %q", got)
	}
	if got := ProfileKey("user-456"); got != "profiles/user-456.json" {
		t.Errorf("ProfileKey(user-456) = %q", got)
	}
}

func TestKnowledgeKey(t *testing.T) {
	if got := KnowledgeKey("u123"); got != "knowledge/u123.jsonl" {
		t.Errorf("KnowledgeKey(u123) = %q", got)
	}
	if got := KnowledgeKey("user-456"); got != "knowledge/user-456.jsonl" {
		t.Errorf("KnowledgeKey(user-456) = %q", got)
	}
}

func TestSessionKey(t *testing.T) {
	if got := SessionKey("abc"); got != "sessions/abc.jsonl" {
		t.Errorf("SessionKey(abc) = %q", got)
	}
}

package types

// Triple is one (subject, predicate, object) fact extracted from a user's
// conversations. Duplicates are permitted; insertion order is the only
// ordering a user's collection carries.
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// Profile is a per-user document of inferred conversational traits. It has no
// fixed schema; by convention it carries a "traits" sub-object using the keys
// in ProfileTraitKeys. Saves are whole-document overwrites.
type Profile = map[string]any

// ProfileTraitKeys are the recognized keys of the profile "traits" object.
// They are a convention, not a validated contract.
var ProfileTraitKeys = []string{
	"communication_style",
	"emotional_tone",
	"preferred_topics",
	"decision_making",
}

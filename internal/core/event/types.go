package event

// Registry lifecycle events. IDs are the textual entity handles so the
// event package stays independent of the registry package.

type EntityRegistered struct {
	ID string
}

type EntityDeleted struct {
	ID string
}

type StateChanged struct {
	ID  string
	Old string
	New string
}

type FlagsChanged struct {
	ID    string
	Flags string // space-joined current flag set
}

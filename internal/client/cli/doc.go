// Package cli implements the interactive ShiftDesk terminal client.
//
// The App owns the local session store, the switch orchestrator and the
// presence heartbeat. Commands are read line by line (see runREPL):
//
//	login                 sign in with email and password
//	accounts              list stored accounts, marking the active one
//	switch <n|email>      quick-switch to a stored account using its PIN
//	exit-session          go offline and return to the account chooser
//	logout                sign out and forget every stored account
//	pin status|set|clear  manage the active account's quick-switch PIN
//	verify-password       re-check the active account's password
//	users                 list staff grouped by presence
//	help                  show commands
//	quit                  mark the active account offline and leave
package cli

// Package group implements trigger cascades.
//
// A group module owns one channel per configured group. Each channel has a
// single write-only value; writing a literal to it runs every trigger of the
// group whose input set contains that literal. A trigger's actions are RPC
// paths executed in order through a Dispatcher, normally the rpc.Router:
//
//	trigger: "home|back -> wemo/switch1/0/1, winston/garage/0/0"
//
// The first failing action stops the cascade and is reported as a
// *TriggerError naming the group and the action. Actions already executed
// are not undone. Cycles between groups are not detected.
//
// Each trigger firing can be recorded through a Recorder (the SQLite
// Repository) and announced through a Notifier.
package group

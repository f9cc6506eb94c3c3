// Package action implements the cross-component navigation bus: queuing
// one action (e.g. "show this address in the memory view") for whichever
// tab it targets, and a small recent-items ring so a library or console
// entry that was just navigated to is easy to find again.
//
// The pending action is a single slot that is polled and then explicitly
// consumed, and a typed tab-switch callback fires in-process when an
// action's type maps to a tab.
package action

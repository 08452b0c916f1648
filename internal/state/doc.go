// Package state keeps device-reported and desired property values in sync.
//
// A Manager serves one entity kind (connector, device or channel). Its four
// entry points differ only in direction and audience:
//
//	Read   load for display       read-side transforms applied
//	Get    load for programmatic  device-native values
//	Write  save a user intent     write-side transforms applied, actual values rejected
//	Set    save a device report   the only path that may change actual values
//
// Loading runs normalize, then the read transforms, then the mapped-property
// leg. Saving runs the mirror image and ends by flattening the value for
// storage. A stored value that no longer normalises is healed: the field is
// nulled in storage and the record reloaded once.
//
// When no state backend is configured every operation logs a warning and
// returns a nil state or false instead of an error.
//
// Async wraps a Manager so each operation returns a Future; batch helpers fan
// out concurrently and wait for every item.
package state

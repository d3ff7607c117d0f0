// Package drift compares a render plan against the files on disk.
//
// Each planned target is classified as Missing, InSync, Modified or
// ForeignConflict; planned deletions may also be Orphaned. The manifest
// record of the last managed write is what separates a file the engine has
// never touched (Modified, safe to adopt) from one that was hand-edited
// after the engine wrote it (ForeignConflict, never overwritten silently).
package drift

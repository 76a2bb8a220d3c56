// Package extract moves build output between tar streams and the local
// filesystem.
//
// [Untar] unpacks the tar stream produced by copying a directory out of a
// container. The stream's entries are rooted at the copied directory's base
// name; that first component is stripped, so the directory's contents land
// directly in the destination. Entries that would resolve outside the
// destination are rejected.
//
// [Archive] packs a directory into a zstd-compressed tarball.
package extract

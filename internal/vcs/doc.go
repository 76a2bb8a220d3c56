// Package vcs derives human-readable version descriptors from git metadata.
//
// [Describe] produces the same string as
//
//	git describe --tags --always --dirty
//
// without requiring the git executable: the repository is read in-process
// with go-git. The result names the nearest tag reachable from HEAD, followed
// by the number of commits since that tag and the abbreviated commit hash
// when HEAD is not tagged itself. Repositories without reachable tags yield
// the abbreviated hash alone. A "-dirty" suffix marks uncommitted changes to
// tracked files.
//
// Example usage:
//
//	desc, err := vcs.Describe(".", vcs.Options{})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(desc) // v1.4.0-3-g1a2b3c4-dirty
package vcs

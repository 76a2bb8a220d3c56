// Resolved project settings for a build run.
//
// A [Project] holds every literal the pipeline uses: the image tag, the
// build definition and context, the throwaway container name and the source
// and output directories. [Defaults] returns the values of the historic
// build script; [Project.Resolve] anchors relative paths at the project
// directory.
//
// Build arguments come from three places, in increasing precedence: the
// descriptor argument, a dotenv file and repeated KEY=VALUE flags. See
// [Project.BuildArgs].
//
// Settings may also be read from YAML files with flat keys matching the
// command line flag names:
//
//	image: jitolabs/solana-accountsdb-connector
//	container: temp
//	build-arg:
//	  - RUST_VERSION=1.79
//
// [YAML] adapts such a file into a kong resolver.
package project

// Parses flags and configures logging for cbuild.
//
// Commands:
//
//	run        Build the image and extract the output (default).
//	describe   Print the version descriptor of the repository.
//	clean      Remove the throwaway container, and optionally the image.
//	version    Show version information.
//
// Global flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Enable verbose output.
//	-d, --debug     Enable debug output.
//
// Every project flag can also be set through a CBUILD_* environment variable
// or a YAML configuration file, looked up as ./cbuild.yaml and then in the
// user configuration directory. Flags given on the command line override
// both, and also override build-time defaults set via linker flags. After
// parsing, the global logger is reconfigured to reflect the final level and
// verbosity.
package cli

// Provides platform-appropriate paths for configuration and cache files.
//
// Paths follow XDG conventions on Linux and platform-native conventions on
// macOS and Windows, with "cbuild" as the subdirectory under each base path.
package paths

// Runs the containerized build.
//
// [Run] performs a fixed, linear sequence against an [runtime.Engine]:
//
//  1. resolve the project directory
//  2. compute the version descriptor of the enclosing repository
//  3. log the descriptor
//  4. build the image, passing the descriptor as a build argument
//  5. remove a leftover throwaway container, ignoring failure
//  6. create the throwaway container from the image
//  7. create the output directory
//  8. copy the source directory out of the container into the output
//  9. remove the throwaway container
//
// Any failing step aborts the run with a [*StepError]. Once the container
// exists its removal is guaranteed: if step 7 or 8 fails the container is
// still removed, a removal failure is logged, and the original error is
// returned. On an otherwise successful run a removal failure is fatal.
//
// Optional steps follow step 9 when enabled: removing the image, packing the
// output into a tar.zst archive and saving the image as a tarball. Nothing is
// rolled back; the image outlives a failed run.
//
// Every step is timed and reported to a [metrics.Recorder].
package pipeline

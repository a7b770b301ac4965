// Command shrink compresses images and videos from the terminal.
//
// Jobs run in-process through the same runner the daemon uses; progress is
// drawn as bars on a terminal and as plain lines otherwise. Subcommands also
// install the ffmpeg dependencies, inspect media, render previews, query the
// job history and run the HTTP daemon in the foreground.
package main

// Package transcode runs ffmpeg postprocessing recipes over downloaded audio.
//
// A recipe is a named ffmpeg argument template. Applying it to a source file
// writes one derived file next to the source, named <base>-<suffix>.<ext>.
// Directories are processed one file at a time; a failing file is reported
// and the remaining files are still processed.
package transcode

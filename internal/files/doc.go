// Package files stores export artifacts on disk and lists them again.
//
// Store writes artifacts into one output directory. Writes go through a
// temporary file and a rename, so readers never see a partial file, and an
// existing artifact is never overwritten: a second export of the same day
// becomes grid-export-2024-03-15-1.xlsx.
//
//	store := files.NewStore(cfg.OutputDir(), logger)
//	path, err := store.Write(result.Artifact)
//
// Discovery lists what a Store has written, oldest first.
package files

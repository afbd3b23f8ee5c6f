/*
Package filesystem holds the file handling shared by the upload path and the
conversion workers.

# Uploads

SaveUpload persists an incoming body with renameio: bytes go to a temporary
file in the destination directory which is fsynced and renamed into place
only after the whole body arrived. A reader that sees the file always sees
all of it, and an aborted upload leaves nothing behind.

	saved, err := filesystem.SaveUpload(cfg.UploadDir, header.Filename, part, cfg.MaxUploadSize)
	if errors.Is(err, filesystem.ErrTooLarge) {
	    // 413
	}

Stored names are "<uuid>_<sanitized base name>", so two uploads of the same
file never collide and output names derived from the stem are unique too.

# Retry

StatWithRetry and OpenWithRetry wrap os.Stat and os.Open with exponential
backoff for ESTALE (stale file handle) errors, which network mounts return
transiently. Other errors fail immediately. Defaults: 3 retries, 50ms initial
backoff, 500ms cap.

Retry metrics are reported through an Observer labelled by volume; the
VolumeResolver maps paths to "uploads", "converted" or "unknown".
*/
package filesystem

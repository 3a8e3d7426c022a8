package driven

import "context"

// TabletClient moves documents to and from the tablet's folder tree.
type TabletClient interface {
	// Check verifies the tablet service is reachable and authenticated.
	Check(ctx context.Context) error

	// ListFiles returns the document names in folder, excluding subfolders.
	ListFiles(ctx context.Context, folder string) ([]string, error)

	// UploadFile puts a local file into remoteFolder.
	UploadFile(ctx context.Context, localPath, remoteFolder string) error

	// DownloadFile fetches a document archive into destDir and returns
	// the local archive path.
	DownloadFile(ctx context.Context, remotePath, destDir string) (string, error)
}

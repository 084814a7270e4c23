// Package blob interprets Azure Storage blob-created event subjects and
// decides which blobs are worth processing. Both operations are purely
// syntactic: no network calls, no existence checks against storage.
package blob

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedSubject is returned by ParseSubject when the event subject
// does not carry a recognisable container/blob path. Callers should treat
// it as a skip condition, not a crash: EventGrid delivers at most once and
// a malformed subject will never become parseable on its own.
var ErrMalformedSubject = errors.New("malformed event subject")

// storageDomain is the public DNS suffix for Azure blob endpoints.
const storageDomain = "blob.core.windows.net"

// ParseSubject derives the blob's canonical URL from an EventGrid event
// subject and the storage account name.
//
// Subjects look like:
//
//	/blobServices/default/containers/{container}/blobs/{blob...}
//
// The container name is the single segment after "containers"; the blob
// name is everything after "blobs" rejoined with "/", since blob names may
// contain slashes. The returned URL is built by string templating only, so
// it never validates that the blob actually exists.
func ParseSubject(subject, storageAccount string) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("blob: empty subject: %w", ErrMalformedSubject)
	}

	parts := strings.Split(subject, "/")

	containerIdx := indexOf(parts, "containers")
	blobIdx := indexOf(parts, "blobs")
	if containerIdx < 0 || blobIdx < 0 {
		return "", fmt.Errorf("blob: subject %q lacks containers/blobs segments: %w", subject, ErrMalformedSubject)
	}
	if containerIdx+1 >= len(parts) || blobIdx+1 >= len(parts) {
		return "", fmt.Errorf("blob: cannot extract container/blob from subject %q: %w", subject, ErrMalformedSubject)
	}

	container := parts[containerIdx+1]
	blobName := strings.Join(parts[blobIdx+1:], "/")

	return fmt.Sprintf("https://%s.%s/%s/%s", storageAccount, storageDomain, container, blobName), nil
}

// indexOf returns the index of the first occurrence of want in parts, or -1.
func indexOf(parts []string, want string) int {
	for i, p := range parts {
		if p == want {
			return i
		}
	}
	return -1
}

package attachments

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

const uriScheme = "gs://"

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ParseURI splits "gs://bucket/path/to/object" into bucket and object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, uriScheme) {
		return "", "", fmt.Errorf("ParseURI: %w: not a gs:// URI: %s", domain.ErrInvalidInput, uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, uriScheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("ParseURI: %w: no object path: %s", domain.ErrInvalidInput, uri)
	}
	return parts[0], parts[1], nil
}

func FormatURI(bucket, object string) string {
	return uriScheme + bucket + "/" + object
}

// TransactionPrefix is the object prefix under which a transaction's files live.
func TransactionPrefix(userID, txID string) string {
	return "users/" + userID + "/transactions/" + txID + "/"
}

// ObjectName builds users/{uid}/transactions/{txID}/{id}_{filename}.
func ObjectName(userID, txID, id, filename string) string {
	return TransactionPrefix(userID, txID) + id + "_" + SanitizeFilename(filename)
}

// SanitizeFilename keeps the base name and replaces characters that are
// awkward in object names.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

// FilenameFromURI returns the original file name of an attachment URI,
// without the unique id prefix.
// e.g. "gs://b/users/u/transactions/t/3f2a_receipt.jpg" → "receipt.jpg"
func FilenameFromURI(uri string) string {
	base := path.Base(strings.TrimPrefix(uri, uriScheme))
	if _, name, ok := strings.Cut(base, "_"); ok && name != "" {
		return name
	}
	return base
}

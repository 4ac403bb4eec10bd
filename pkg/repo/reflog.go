package repo

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/odvcencio/twig/pkg/object"
)

const zeroHash object.Hash = "0000000000000000000000000000000000000000"

// ReflogEntry is one line of .git/logs/<ref>.
type ReflogEntry struct {
	Ref       string
	OldHash   object.Hash
	NewHash   object.Hash
	Timestamp int64
	Reason    string
}

// reflogNow is replaced in tests.
var reflogNow = time.Now

// appendReflog records a ref moving from oldHash to newHash. An empty hash
// is written as the zero id.
func (r *Repo) appendReflog(ref string, oldHash, newHash object.Hash, reason string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	if strings.TrimSpace(reason) == "" {
		reason = "update"
	}
	if oldHash == "" {
		oldHash = zeroHash
	}
	if newHash == "" {
		newHash = zeroHash
	}
	reason = strings.ReplaceAll(reason, "\n", " ")

	logPath := path.Join("logs", ref)
	if err := r.GitDir.MkdirAll(path.Dir(logPath), 0o755); err != nil {
		return errIO("reflog "+ref+": mkdir", err)
	}
	f, err := r.GitDir.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errIO("reflog "+ref+": open", err)
	}
	line := fmt.Sprintf("%s %s %d %s\n", oldHash, newHash, reflogNow().Unix(), reason)
	if _, err := f.Write([]byte(line)); err != nil {
		f.Close()
		return errIO("reflog "+ref+": write", err)
	}
	if err := f.Close(); err != nil {
		return errIO("reflog "+ref+": close", err)
	}
	return nil
}

// ReadReflog returns the reflog of ref, newest first. "" and "HEAD" read
// the log of HEAD; short names are taken as branches. limit <= 0 returns
// every entry. A ref without a log has no entries.
func (r *Repo) ReadReflog(ref string, limit int) ([]ReflogEntry, error) {
	refName := reflogRefName(ref)
	data, err := readFile(r.GitDir, path.Join("logs", refName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errIO("read reflog "+refName, err)
	}

	var entries []ReflogEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 4)
		if len(parts) < 4 {
			continue
		}
		ts, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, ReflogEntry{
			Ref:       refName,
			OldHash:   object.Hash(parts[0]),
			NewHash:   object.Hash(parts[1]),
			Timestamp: ts,
			Reason:    parts[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errIO("read reflog "+refName, err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func reflogRefName(ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "" || ref == "HEAD":
		return "HEAD"
	case strings.HasPrefix(ref, "refs/"):
		return ref
	default:
		return "refs/heads/" + ref
	}
}

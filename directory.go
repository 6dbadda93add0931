package ftp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// WalkFunc is the type of the function called for each file or directory
// visited by Walk. The path argument contains the argument to Walk as a
// prefix.
//
// If there was a problem walking to the file or directory, the incoming
// error will describe the problem and the function can decide how to handle
// that error (and Walk will not descend into that directory). In the case
// of an error, the info argument will be nil. If an error is returned,
// processing stops. The sole exception is when the function returns the
// special value SkipDir.
type WalkFunc func(path string, info *Entry, err error) error

// SkipDir is used as a return value from WalkFunc to indicate that the
// directory named in the call is to be skipped.
var SkipDir = filepath.SkipDir

// Walk walks the file tree rooted at root, calling walkFn for each file or
// directory in the tree, including root. Walk does not follow symbolic
// links.
func (c *Client) Walk(root string, walkFn WalkFunc) error {
	var rootEntry *Entry
	cleanRoot := path.Clean(root)
	if cleanRoot == "." || cleanRoot == "/" {
		rootEntry = &Entry{Name: cleanRoot, Type: "dir"}
	} else {
		parent := path.Dir(cleanRoot)
		if parent == "." && !strings.Contains(cleanRoot, "/") {
			parent = ""
		}
		entries, err := c.List(parent)
		if err != nil {
			return walkFn(root, nil, err)
		}
		targetName := path.Base(cleanRoot)
		for _, e := range entries {
			if e.Name == targetName {
				rootEntry = e
				break
			}
		}
		if rootEntry == nil {
			return walkFn(root, nil, os.ErrNotExist)
		}
	}

	return c.walk(cleanRoot, rootEntry, walkFn)
}

func (c *Client) walk(pathStr string, info *Entry, walkFn WalkFunc) error {
	if err := walkFn(pathStr, info, nil); err != nil {
		if info != nil && info.Type == "dir" && err == SkipDir {
			return nil
		}
		return err
	}

	if info == nil || info.Type != "dir" {
		return nil
	}

	entries, err := c.List(pathStr)
	if err != nil {
		return walkFn(pathStr, info, err)
	}

	for _, entry := range entries {
		if entry.Name == "." || entry.Name == ".." {
			continue
		}
		fullPath := path.Join(pathStr, entry.Name)
		if err := c.walk(fullPath, entry, walkFn); err != nil {
			if err == SkipDir {
				continue
			}
			return err
		}
	}

	return nil
}

// Entry represents a file or directory entry yielded by a directory
// listing, whichever provider produced it (spec §4.F: "directory provider
// dispatches to MLSD when the server advertises it, LIST otherwise").
type Entry struct {
	Name   string
	Type   string // "file", "dir", or "link"; MLSD listings may also yield "cdir", "pdir" or another raw type fact
	Size   int64
	Target string // symlink target, empty otherwise
	Raw    string // the raw source line
}

// directoryProvider is the listing strategy chosen once per login (spec
// §4.F/§4.G step 7): MLSD if the server advertised it in FEAT, LIST
// otherwise.
type directoryProvider int

const (
	providerLIST directoryProvider = iota
	providerMLSD
)

// listFilter selects which entry kinds a directory-provider listing
// returns (spec §4.F step 5: "filters by type if requested").
type listFilter int

const (
	filterAll listFilter = iota
	filterFiles
	filterDirs
)

// ListAll returns every entry of dir using the directory provider chosen
// at Login (MLSD when the server advertised it, LIST otherwise).
func (c *Client) ListAll(dir string) ([]*Entry, error) {
	return c.listProvided(dir, filterAll)
}

// ListFiles is ListAll filtered to plain files.
func (c *Client) ListFiles(dir string) ([]*Entry, error) {
	return c.listProvided(dir, filterFiles)
}

// ListDirectories is ListAll filtered to subdirectories.
func (c *Client) ListDirectories(dir string) ([]*Entry, error) {
	return c.listProvided(dir, filterDirs)
}

func (c *Client) listProvided(dir string, filter listFilter) ([]*Entry, error) {
	if c.listProvider == providerMLSD {
		mlEntries, err := c.mlList(dir, filter)
		if err != nil {
			return nil, err
		}
		entries := make([]*Entry, len(mlEntries))
		for i, m := range mlEntries {
			entries[i] = &Entry{Name: m.Name, Type: m.Type, Size: m.Size}
		}
		return entries, nil
	}

	entries, err := c.List(dir)
	if err != nil {
		return nil, err
	}
	if filter == filterAll {
		return entries, nil
	}

	want := "file"
	if filter == filterDirs {
		want = "dir"
	}
	filtered := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if e.Type == want {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

func (c *Client) acquireDataSlot(ctx context.Context) error {
	if err := c.dataSem.Acquire(ctx, 1); err != nil {
		return cancelledErr(err)
	}
	return nil
}

func (c *Client) releaseDataSlot() {
	c.dataSem.Release(1)
}

// List returns the entries of path via LIST, parsed with the Unix and DOS
// parsers (plus any registered via WithCustomListParser). For a
// machine-parsable listing, prefer MLList when the server advertises MLST
// in FEAT.
func (c *Client) List(dir string) ([]*Entry, error) {
	if err := c.acquireDataSlot(context.Background()); err != nil {
		return nil, err
	}
	defer c.releaseDataSlot()

	var dataConn net.Conn
	var err error

	if dir == "" {
		_, dataConn, err = c.cmdDataConnFrom("LIST")
	} else {
		_, dataConn, err = c.cmdDataConnFrom("LIST", dir)
	}
	if err != nil {
		return nil, err
	}

	var entries []*Entry
	scanner := bufio.NewScanner(dataConn)
	for scanner.Scan() {
		line := scanner.Text()
		entry := parseListLine(line, c.cfg.parsers)
		if entry != nil {
			entries = append(entries, entry)
		}
	}

	if err := scanner.Err(); err != nil {
		dataConn.Close()
		return nil, transportErr("read directory listing", err)
	}

	if err := c.finishDataConn(dataConn); err != nil {
		return nil, err
	}

	return entries, nil
}

// ListingParser parses one line of a LIST response into an Entry.
type ListingParser interface {
	Parse(line string) (*Entry, bool)
}

// UnixParser parses Unix-style directory entries (9-field, 8-field, or
// numeric permissions).
type UnixParser struct{}

func (p *UnixParser) Parse(line string) (*Entry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 8 {
		return nil, false
	}
	entry := &Entry{Raw: line}
	if parseUnixEntry(entry, fields) {
		return entry, true
	}
	return nil, false
}

// DOSParser parses DOS/Windows-style directory entries.
type DOSParser struct{}

func (p *DOSParser) Parse(line string) (*Entry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return nil, false
	}
	if !isDOSDate(fields[0]) {
		return nil, false
	}
	entry := &Entry{Raw: line}
	if parseDOSEntry(entry, fields) {
		return entry, true
	}
	return nil, false
}

// EPLFParser parses EPLF entries. It is not in the default parser set
// (spec §4.B selects Unix then DOS by default); register it explicitly
// with WithCustomListParser for servers that emit EPLF.
type EPLFParser struct{}

func (p *EPLFParser) Parse(line string) (*Entry, bool) {
	if !strings.HasPrefix(line, "+") {
		return nil, false
	}
	entry := &Entry{Raw: line}
	if parseEPLFEntry(entry, line) {
		return entry, true
	}
	return nil, false
}

// CompositeParser tries each registered parser in order and returns nil
// if none match, so unrecognised lines yield no entry.
type CompositeParser struct {
	Parsers []ListingParser
}

func (p *CompositeParser) Parse(line string) *Entry {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}

	for _, parser := range p.Parsers {
		if entry, ok := parser.Parse(trimmed); ok {
			return entry
		}
	}

	return nil
}

// parseListLine parses a single LIST line. The default parser set is
// Unix then DOS; custom parsers registered via WithCustomListParser run
// first.
func parseListLine(line string, custom []ListingParser) *Entry {
	parsers := append(append([]ListingParser{}, custom...), &UnixParser{}, &DOSParser{})
	composite := &CompositeParser{Parsers: parsers}
	return composite.Parse(line)
}

// parseUnixEntry parses a Unix-style directory entry. Handles both
// 9-field and 8-field formats, and numeric or symbolic permissions.
func parseUnixEntry(entry *Entry, fields []string) bool {
	perms := fields[0]

	isSymbolic := len(perms) >= 1 && (perms[0] == '-' || perms[0] == 'd' ||
		perms[0] == 'l' || perms[0] == 'b' || perms[0] == 'c' ||
		perms[0] == 'p' || perms[0] == 's')

	isNumeric := len(perms) >= 3 && len(perms) <= 4
	for _, ch := range perms {
		if ch < '0' || ch > '7' {
			isNumeric = false
			break
		}
	}

	if !isSymbolic && !isNumeric {
		return false
	}

	if isSymbolic {
		switch perms[0] {
		case 'd':
			entry.Type = "dir"
		case 'l':
			entry.Type = "link"
		default:
			entry.Type = "file"
		}
	} else {
		entry.Type = "file"
	}

	var sizeIdx, nameStartIdx int

	if len(fields) >= 9 {
		if _, err := parseSize(fields[4]); err == nil {
			sizeIdx, nameStartIdx = 4, 8
		} else if _, err := parseSize(fields[3]); err == nil {
			sizeIdx, nameStartIdx = 3, 7
		} else {
			return false
		}
	} else if len(fields) >= 8 {
		if _, err := parseSize(fields[3]); err == nil {
			sizeIdx, nameStartIdx = 3, 7
		} else {
			return false
		}
	} else {
		return false
	}

	size, err := parseSize(fields[sizeIdx])
	if err != nil {
		return false
	}
	entry.Size = size

	fullName := strings.Join(fields[nameStartIdx:], " ")

	if entry.Type == "link" {
		if before, after, ok := strings.Cut(fullName, " -> "); ok {
			entry.Name = before
			entry.Target = after
		} else {
			entry.Name = fullName
		}
	} else {
		entry.Name = fullName
	}

	return true
}

// parseEPLFEntry parses an EPLF (Easily Parsed LIST Format) entry.
// Format: +facts\tname or +facts name, facts comma-separated.
func parseEPLFEntry(entry *Entry, line string) bool {
	if !strings.HasPrefix(line, "+") {
		return false
	}
	line = line[1:]

	var name, facts string
	if idx := strings.IndexAny(line, "\t "); idx != -1 {
		facts = line[:idx]
		name = strings.TrimSpace(line[idx+1:])
	} else {
		return false
	}
	if name == "" {
		return false
	}

	entry.Name = name
	entry.Type = "file"

	for fact := range strings.SplitSeq(facts, ",") {
		if fact == "" {
			continue
		}
		switch fact[0] {
		case '/':
			entry.Type = "dir"
		case 's':
			if len(fact) > 1 {
				if size, err := parseSize(fact[1:]); err == nil {
					entry.Size = size
				}
			}
		}
	}

	return true
}

// isDOSDate reports whether s looks like a DOS/Windows date
// (MM-DD-YY[YY] or MM/DD/YY[YY]).
func isDOSDate(s string) bool {
	var parts []string
	if strings.Contains(s, "-") {
		parts = strings.Split(s, "-")
	} else if strings.Contains(s, "/") {
		parts = strings.Split(s, "/")
	} else {
		return false
	}

	if len(parts) != 3 {
		return false
	}

	for i, part := range parts {
		if len(part) < 1 || len(part) > 4 {
			return false
		}
		if i == 2 && len(part) != 2 && len(part) != 4 {
			return false
		}
		if i < 2 && len(part) > 2 {
			return false
		}
		for _, ch := range part {
			if ch < '0' || ch > '9' {
				return false
			}
		}
	}
	return true
}

// parseDOSEntry parses a DOS/Windows-style directory entry, e.g.:
//
//	"12-14-23  12:22PM           1037794 large-document.pdf"
//	"09-24-24  10:30AM       <DIR>          logger"
func parseDOSEntry(entry *Entry, fields []string) bool {
	if len(fields) < 4 {
		return false
	}

	if fields[2] == "<DIR>" {
		entry.Type = "dir"
		entry.Size = 0
		entry.Name = strings.Join(fields[3:], " ")
		return true
	}

	size, err := parseSize(fields[2])
	if err != nil {
		return false
	}

	entry.Type = "file"
	entry.Size = size
	entry.Name = strings.Join(fields[3:], " ")
	return true
}

func parseSize(sizeStr string) (int64, error) {
	return strconv.ParseInt(sizeStr, 10, 64)
}

// NameList returns the entries of dir via NLST, one bare name per line.
func (c *Client) NameList(dir string) ([]string, error) {
	if err := c.acquireDataSlot(context.Background()); err != nil {
		return nil, err
	}
	defer c.releaseDataSlot()

	var dataConn net.Conn
	var err error

	if dir == "" {
		_, dataConn, err = c.cmdDataConnFrom("NLST")
	} else {
		_, dataConn, err = c.cmdDataConnFrom("NLST", dir)
	}
	if err != nil {
		return nil, err
	}

	var names []string
	scanner := bufio.NewScanner(dataConn)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name != "" {
			names = append(names, name)
		}
	}

	if err := scanner.Err(); err != nil {
		dataConn.Close()
		return nil, transportErr("read name list", err)
	}

	if err := c.finishDataConn(dataConn); err != nil {
		return nil, err
	}

	return names, nil
}

// ChangeDir changes the current working directory.
func (c *Client) ChangeDir(dir string) error {
	_, err := c.expect2xx("CWD", dir)
	if err == nil {
		c.cwd = ""
	}
	return err
}

// CurrentDir returns the current working directory via PWD.
func (c *Client) CurrentDir() (string, error) {
	resp, err := c.expect2xx("PWD")
	if err != nil {
		return "", err
	}

	msg := resp.Message
	start := strings.Index(msg, "\"")
	if start == -1 {
		return "", fmt.Errorf("invalid PWD response: %s", msg)
	}
	end := strings.Index(msg[start+1:], "\"")
	if end == -1 {
		return "", fmt.Errorf("invalid PWD response: %s", msg)
	}

	dir := msg[start+1 : start+1+end]
	c.cwd = dir
	return dir, nil
}

// MakeDir creates dir, creating missing parent directories first
// (spec §4.G: base-directory creation uses the same CWD/MKD-on-550 walk
// as Login's BaseDirectory step).
func (c *Client) MakeDir(dir string) error {
	if _, err := c.expect2xx("MKD", dir); err == nil {
		return nil
	}

	return c.makeDirRecursive(dir)
}

// makeDirRecursive walks dir one path segment at a time via CWD, issuing
// MKD+CWD for any segment CWD refuses with 550, then restores the
// original working directory if dir was absolute (spec §4.G "Create
// directory (recursive)").
func (c *Client) makeDirRecursive(dir string) error {
	clean := path.Clean(dir)
	if clean == "." || clean == "/" || clean == "" {
		return nil
	}

	var segments []string
	for _, seg := range strings.Split(clean, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return nil
	}

	c.cwd = ""

	if len(segments) == 1 {
		_, err := c.expect2xx("MKD", segments[0])
		return err
	}

	absolute := strings.HasPrefix(clean, "/")
	var original string
	if absolute {
		orig, err := c.CurrentDir()
		if err != nil {
			return err
		}
		original = orig
		if _, err := c.expect2xx("CWD", "/"); err != nil {
			return err
		}
	}

	err := c.cwdOrMakeEach(segments)

	if absolute {
		if _, restoreErr := c.expect2xx("CWD", original); restoreErr != nil && err == nil {
			err = restoreErr
		}
	}

	return err
}

// cwdOrMakeEach tries CWD into each segment in turn; on 550 it MKDs then
// CWDs into the new segment.
func (c *Client) cwdOrMakeEach(segments []string) error {
	for _, seg := range segments {
		resp, err := c.sendCommand("CWD", seg)
		if err != nil {
			return err
		}
		if resp.Is2xx() {
			continue
		}
		if resp.Code != 550 {
			return protocolErr("CWD", resp)
		}
		if _, err := c.expect2xx("MKD", seg); err != nil {
			return err
		}
		if _, err := c.expect2xx("CWD", seg); err != nil {
			return err
		}
	}
	return nil
}

// RemoveDir removes dir. If the server refuses because the directory is
// not empty (550), its contents are removed recursively first (spec §4.G):
// files via DELE, subdirectories via a recursive RemoveDir, then the
// directory itself is retried. Root is a no-op.
func (c *Client) RemoveDir(dir string) error {
	if path.Clean(dir) == "/" {
		return nil
	}

	resp, err := c.sendCommand("RMD", dir)
	if err != nil {
		return err
	}
	if resp.Is2xx() {
		return nil
	}
	if resp.Code != 550 {
		return protocolErr("RMD", resp)
	}

	entries, err := c.List(dir)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		child := path.Join(dir, e.Name)
		if e.Type == "dir" {
			if err := c.RemoveDir(child); err != nil {
				return err
			}
		} else {
			if err := c.Delete(child); err != nil {
				return err
			}
		}
	}

	_, err = c.expect2xx("RMD", dir)
	return err
}

// Delete deletes a file via DELE.
func (c *Client) Delete(path string) error {
	_, err := c.expect2xx("DELE", path)
	return err
}

// Rename renames a file or directory via RNFR/RNTO.
func (c *Client) Rename(from, to string) error {
	resp, err := c.sendCommand("RNFR", from)
	if err != nil {
		return err
	}
	if resp.Code != 350 {
		return protocolErr("RNFR", resp)
	}

	_, err = c.expect2xx("RNTO", to)
	return err
}

// Size returns the size of a file in bytes via SIZE (spec §4.G "File
// size": requires code 213).
func (c *Client) Size(path string) (int64, error) {
	resp, err := c.expectCode(213, "SIZE", path)
	if err != nil {
		return 0, err
	}

	var size int64
	if _, err := fmt.Sscanf(resp.Message, "%d", &size); err != nil {
		return 0, fmt.Errorf("invalid SIZE response: %s", resp.Message)
	}

	return size, nil
}

// ModTime returns the modification time of a file via MDTM (RFC 3659).
func (c *Client) ModTime(path string) (time.Time, error) {
	resp, err := c.expect2xx("MDTM", path)
	if err != nil {
		return time.Time{}, err
	}

	timestamp := strings.TrimSpace(resp.Message)
	if len(timestamp) != 14 {
		return time.Time{}, fmt.Errorf("invalid MDTM response format: %s", resp.Message)
	}

	modTime, err := time.Parse("20060102150405", timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse MDTM timestamp: %w", err)
	}

	return modTime.UTC(), nil
}

// SetModTime sets the modification time of a file via MFMT.
func (c *Client) SetModTime(path string, t time.Time) error {
	timestamp := t.UTC().Format("20060102150405")
	_, err := c.expect2xx("MFMT", timestamp, path)
	return err
}

// Chmod changes the permissions of a file via SITE CHMOD.
func (c *Client) Chmod(path string, mode os.FileMode) error {
	octalMode := fmt.Sprintf("%04o", mode&os.ModePerm)
	_, err := c.expect2xx("SITE", "CHMOD", octalMode, path)
	return err
}

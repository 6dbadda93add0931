package ftp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// MLEntry represents a machine-readable directory entry from MLST/MLSD
// (RFC 3659), structured and unambiguous compared to a LIST line.
type MLEntry struct {
	Name string

	// Type is "file", "dir", "cdir" (current), "pdir" (parent), or "link"
	// (OS.unix=symlink / OS.unix=slink); any other type fact is kept lowercased.
	Type string

	Size int64

	ModTime time.Time

	// Perm holds the raw RFC 3659 perm fact (e.g. "r", "w", "a", "d", "f").
	Perm string

	// UnixMode is the unix.mode fact, if the server provides one.
	UnixMode string

	// Facts holds every raw fact the server sent, lowercased keys.
	Facts map[string]string
}

// MLStat returns machine-readable information about a single path via
// MLST.
func (c *Client) MLStat(path string) (*MLEntry, error) {
	if cached, ok := c.mlstCache.Get(path); ok {
		return cached, nil
	}

	resp, err := c.sendCommand("MLST", path)
	if err != nil {
		return nil, err
	}
	if resp.Code != 250 {
		return nil, protocolErr("MLST", resp)
	}

	if len(resp.Lines) < 2 {
		return nil, fmt.Errorf("invalid MLST response: too few lines")
	}

	var entryLine string
	for _, line := range resp.Lines {
		trimmed := strings.TrimSpace(line)
		if len(line) >= 4 && (line[3] == '-' || line[3] == ' ') {
			continue
		}
		if trimmed != "" {
			entryLine = trimmed
			break
		}
	}
	if entryLine == "" {
		return nil, fmt.Errorf("no entry found in MLST response")
	}

	entry, err := parseMLEntry(entryLine)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MLST entry: %w", err)
	}

	c.mlstCache.Set(path, entry)
	return entry, nil
}

// MLList returns a machine-readable directory listing via MLSD.
func (c *Client) MLList(dir string) ([]*MLEntry, error) {
	return c.mlList(dir, filterAll)
}

// mlList runs MLSD and, per the directory provider (spec §4.F step 5),
// filters by a substring match on the raw facts ("type=file" / "type=dir")
// before parsing.
func (c *Client) mlList(dir string, filter listFilter) ([]*MLEntry, error) {
	if err := c.acquireDataSlot(context.Background()); err != nil {
		return nil, err
	}
	defer c.releaseDataSlot()

	var dataConn net.Conn
	var err error

	if dir == "" {
		_, dataConn, err = c.cmdDataConnFrom("MLSD")
	} else {
		_, dataConn, err = c.cmdDataConnFrom("MLSD", dir)
	}
	if err != nil {
		return nil, err
	}

	var entries []*MLEntry
	scanner := bufio.NewScanner(dataConn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		switch filter {
		case filterFiles:
			if !strings.Contains(lower, "type=file") {
				continue
			}
		case filterDirs:
			if !strings.Contains(lower, "type=dir") {
				continue
			}
		}

		entry, parseErr := parseMLEntry(line)
		if parseErr != nil {
			continue
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		dataConn.Close()
		return nil, transportErr("read MLSD listing", err)
	}

	if err := c.finishDataConn(dataConn); err != nil {
		return nil, err
	}

	return entries, nil
}

// parseMLEntry parses one "facts entry-name" MLST/MLSD line, facts being
// "fact1=value1;fact2=value2;...".
func parseMLEntry(line string) (*MLEntry, error) {
	spaceIdx := strings.Index(line, " ")
	if spaceIdx == -1 {
		return nil, fmt.Errorf("invalid ML entry format: no space separator")
	}

	factsStr := line[:spaceIdx]
	name := line[spaceIdx+1:]

	facts := make(map[string]string)
	for _, pair := range strings.Split(factsStr, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		facts[strings.ToLower(parts[0])] = parts[1]
	}

	entry := &MLEntry{Name: name, Facts: facts}

	if typeVal, ok := facts["type"]; ok {
		entry.Type = strings.ToLower(typeVal)
		if strings.HasPrefix(entry.Type, "os.unix=symlink") || strings.HasPrefix(entry.Type, "os.unix=slink") {
			entry.Type = "link"
		}
	}
	if sizeVal, ok := facts["size"]; ok {
		if size, err := strconv.ParseInt(sizeVal, 10, 64); err == nil {
			entry.Size = size
		}
	}
	if modifyVal, ok := facts["modify"]; ok {
		timestamp := strings.Split(modifyVal, ".")[0]
		if len(timestamp) == 14 {
			if modTime, err := time.Parse("20060102150405", timestamp); err == nil {
				entry.ModTime = modTime.UTC()
			}
		}
	}
	if permVal, ok := facts["perm"]; ok {
		entry.Perm = permVal
	}
	if modeVal, ok := facts["unix.mode"]; ok {
		entry.UnixMode = modeVal
	}

	return entry, nil
}

package objects

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidemark/keel/pkg/model"
)

// Canonical wire forms.
//
// Object file:  <type> <byteLen>\0<payload>
// Tree payload: one line per entry, sorted by name:
//               <mode octal> <childType> <childHash>\t<name>\n
// Commit payload:
//               tree <hash>\n
//               [parent <hash>\n]
//               author <name> <<email>> <unix seconds>\n
//               \n
//               <message>

func frame(t model.ObjectType, payload []byte) []byte {
	header := fmt.Sprintf("%s %d\x00", t, len(payload))
	framed := make([]byte, 0, len(header)+len(payload))
	framed = append(framed, header...)
	return append(framed, payload...)
}

// unframe splits a stored object into its type tag and payload,
// validating the self-describing header.
func unframe(data []byte) (model.ObjectType, []byte, error) {
	sep := bytes.IndexByte(data, 0)
	if sep < 0 {
		return "", nil, model.ErrCorrupted.Wrap(fmt.Errorf("missing header terminator"))
	}
	header := string(data[:sep])
	payload := data[sep+1:]

	typ, lenStr, ok := strings.Cut(header, " ")
	if !ok {
		return "", nil, model.ErrCorrupted.Wrap(fmt.Errorf("malformed header %q", header))
	}
	objType := model.ObjectType(typ)
	if !objType.Valid() {
		return "", nil, model.ErrCorrupted.Wrap(fmt.Errorf("unknown object type %q", typ))
	}
	declared, err := strconv.Atoi(lenStr)
	if err != nil {
		return "", nil, model.ErrCorrupted.Wrap(fmt.Errorf("bad length in header %q", header))
	}
	if declared != len(payload) {
		return "", nil, model.ErrCorrupted.Wrap(
			fmt.Errorf("declared length %d, payload has %d bytes", declared, len(payload)))
	}
	return objType, payload, nil
}

// encodeTree renders entries in canonical order. The input slice is not
// mutated; two permutations of the same set serialize identically.
func encodeTree(entries []model.TreeEntry) []byte {
	sorted := make([]model.TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var buf bytes.Buffer
	for _, e := range sorted {
		fmt.Fprintf(&buf, "%06o %s %s\t%s\n", uint32(e.Mode), e.Type, e.Hash, e.Name)
	}
	return buf.Bytes()
}

// ParseTree decodes a canonical tree payload.
func ParseTree(payload []byte) ([]model.TreeEntry, error) {
	var entries []model.TreeEntry
	for _, line := range strings.Split(string(payload), "\n") {
		if line == "" {
			continue
		}
		head, name, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, model.ErrCorrupted.Wrap(fmt.Errorf("tree entry %q has no name field", line))
		}
		fields := strings.Fields(head)
		if len(fields) != 3 {
			return nil, model.ErrCorrupted.Wrap(fmt.Errorf("tree entry %q is malformed", line))
		}
		mode, err := strconv.ParseUint(fields[0], 8, 32)
		if err != nil {
			return nil, model.ErrCorrupted.Wrap(fmt.Errorf("tree entry %q has a bad mode", line))
		}
		typ := model.ObjectType(fields[1])
		if typ != model.TypeBlob && typ != model.TypeTree {
			return nil, model.ErrCorrupted.Wrap(fmt.Errorf("tree entry %q has type %q", line, typ))
		}
		entries = append(entries, model.TreeEntry{
			Mode: os.FileMode(mode),
			Type: typ,
			Hash: fields[2],
			Name: name,
		})
	}
	return entries, nil
}

func encodeCommit(c model.CommitDescriptor) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.Tree)
	if c.Parent != "" {
		fmt.Fprintf(&buf, "parent %s\n", c.Parent)
	}
	fmt.Fprintf(&buf, "author %s <%s> %d\n", c.Author.Name, c.Author.Email, c.Timestamp.Unix())
	buf.WriteString("\n")
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// ParseCommit decodes a canonical commit payload.
func ParseCommit(payload []byte) (model.CommitDescriptor, error) {
	var c model.CommitDescriptor
	headers, message, _ := strings.Cut(string(payload), "\n\n")
	c.Message = message

	for _, line := range strings.Split(headers, "\n") {
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			return c, model.ErrCorrupted.Wrap(fmt.Errorf("commit header %q is malformed", line))
		}
		switch key {
		case "tree":
			c.Tree = value
		case "parent":
			c.Parent = value
		case "author":
			author, ts, err := parseAuthor(value)
			if err != nil {
				return c, err
			}
			c.Author = author
			c.Timestamp = ts
		default:
			return c, model.ErrCorrupted.Wrap(fmt.Errorf("unknown commit header %q", key))
		}
	}
	if c.Tree == "" {
		return c, model.ErrCorrupted.Wrap(fmt.Errorf("commit has no tree header"))
	}
	return c, nil
}

func parseAuthor(value string) (model.Contributor, time.Time, error) {
	open := strings.LastIndex(value, "<")
	end := strings.LastIndex(value, ">")
	if open < 0 || end < open {
		return model.Contributor{}, time.Time{},
			model.ErrCorrupted.Wrap(fmt.Errorf("author %q has no email field", value))
	}
	name := strings.TrimSpace(value[:open])
	email := value[open+1 : end]
	secs, err := strconv.ParseInt(strings.TrimSpace(value[end+1:]), 10, 64)
	if err != nil {
		return model.Contributor{}, time.Time{},
			model.ErrCorrupted.Wrap(fmt.Errorf("author %q has a bad timestamp", value))
	}
	return model.Contributor{Name: name, Email: email}, time.Unix(secs, 0).UTC(), nil
}

package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

const (
	globalMagic = "!<arch>\n"
	headerSize  = 60
	headerMagic = "`\n"
)

// Flavor selects how long member names are stored.
type Flavor uint8

const (
	// FlavorGNU keeps long names in a "//" table.
	FlavorGNU Flavor = iota
	// FlavorBSD stores long names inline after "#1/<len>".
	FlavorBSD
)

var ErrNotArchive = errors.New("not an ar archive")

// Member is one file stored in an archive.
type Member struct {
	Name string
	Data []byte
}

// IsSymbolTable reports the index members written by ranlib.
func IsSymbolTable(name string) bool {
	switch name {
	case "/", "/SYM64/", "__.SYMDEF", "__.SYMDEF SORTED", "__.SYMDEF_64", "__.SYMDEF_64 SORTED":
		return true
	}
	return false
}

// ReadMembers parses an ar archive. Symbol tables are returned as regular
// members; callers decide whether to keep them.
func ReadMembers(r io.Reader) ([]Member, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, []byte(globalMagic)) {
		return nil, ErrNotArchive
	}

	var (
		members   []Member
		longNames []byte
	)
	pos := len(globalMagic)
	for pos < len(data) {
		if data[pos] == '\n' {
			// выравнивание между членами
			pos++
			continue
		}
		if pos+headerSize > len(data) {
			return nil, fmt.Errorf("truncated member header at offset %d", pos)
		}
		hdr := data[pos : pos+headerSize]
		if string(hdr[58:60]) != headerMagic {
			return nil, fmt.Errorf("bad member header magic at offset %d", pos)
		}
		rawName := strings.TrimRight(string(hdr[0:16]), " ")
		size, err := strconv.ParseInt(strings.TrimSpace(string(hdr[48:58])), 10, 64)
		if err != nil || size < 0 {
			return nil, fmt.Errorf("bad member size at offset %d", pos)
		}
		pos += headerSize
		end := pos + int(size)
		if end > len(data) {
			return nil, fmt.Errorf("member %q overruns archive", rawName)
		}
		body := data[pos:end]
		pos = end
		if size%2 == 1 && pos < len(data) && data[pos] == '\n' {
			pos++
		}

		switch {
		case rawName == "//":
			longNames = body
			continue
		case strings.HasPrefix(rawName, "#1/"):
			n, err := strconv.Atoi(rawName[3:])
			if err != nil || n > len(body) {
				return nil, fmt.Errorf("bad BSD name length %q", rawName)
			}
			name := strings.TrimRight(string(body[:n]), "\x00")
			members = append(members, Member{Name: name, Data: body[n:]})
			continue
		case rawName == "/" || rawName == "/SYM64/":
			members = append(members, Member{Name: rawName, Data: body})
			continue
		case strings.HasPrefix(rawName, "/"):
			off, err := strconv.Atoi(rawName[1:])
			if err != nil || off >= len(longNames) {
				return nil, fmt.Errorf("bad long name reference %q", rawName)
			}
			name := longNames[off:]
			if i := bytes.Index(name, []byte("/\n")); i >= 0 {
				name = name[:i]
			} else if i := bytes.IndexByte(name, '\n'); i >= 0 {
				name = name[:i]
			}
			members = append(members, Member{Name: string(name), Data: body})
			continue
		}
		members = append(members, Member{Name: strings.TrimSuffix(rawName, "/"), Data: body})
	}
	return members, nil
}

// WriteMembers writes members as an ar archive with zeroed timestamps and
// ids so that identical inputs produce identical bytes.
func WriteMembers(w io.Writer, members []Member, flavor Flavor) error {
	var buf bytes.Buffer
	buf.WriteString(globalMagic)

	var names map[int]string
	if flavor == FlavorGNU {
		var table bytes.Buffer
		names = make(map[int]string)
		for i, m := range members {
			if fitsShortName(m.Name) {
				continue
			}
			names[i] = "/" + strconv.Itoa(table.Len())
			table.WriteString(m.Name)
			table.WriteString("/\n")
		}
		if table.Len() > 0 {
			if err := writeMember(&buf, "//", table.Bytes(), true); err != nil {
				return err
			}
		}
	}

	for i, m := range members {
		switch {
		case flavor == FlavorBSD && (len(m.Name) > 16 || strings.ContainsAny(m.Name, " /")):
			padded := len(m.Name) + (8-len(m.Name)%8)%8
			body := make([]byte, padded, padded+len(m.Data))
			copy(body, m.Name)
			body = append(body, m.Data...)
			if err := writeMember(&buf, "#1/"+strconv.Itoa(padded), body, false); err != nil {
				return err
			}
		case flavor == FlavorBSD:
			if err := writeMember(&buf, m.Name, m.Data, false); err != nil {
				return err
			}
		case names[i] != "":
			if err := writeMember(&buf, names[i], m.Data, false); err != nil {
				return err
			}
		default:
			if err := writeMember(&buf, m.Name+"/", m.Data, false); err != nil {
				return err
			}
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func fitsShortName(name string) bool {
	return len(name) <= 15 && !strings.ContainsAny(name, "/ ")
}

func writeMember(buf *bytes.Buffer, name string, data []byte, table bool) error {
	size, err := safecast.Conv[uint64](len(data))
	if err != nil {
		return fmt.Errorf("member %q: %w", name, err)
	}
	if size > 9999999999 {
		return fmt.Errorf("member %q is too large for ar", name)
	}
	mode := "644"
	if table {
		mode = "0"
	}
	fmt.Fprintf(buf, "%-16s%-12s%-6s%-6s%-8s%-10d%s", name, "0", "0", "0", mode, size, headerMagic)
	buf.Write(data)
	if len(data)%2 == 1 {
		buf.WriteByte('\n')
	}
	return nil
}

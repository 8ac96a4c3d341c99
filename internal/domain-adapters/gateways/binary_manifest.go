package gateways

import (
	"encoding/binary"
	"errors"
	"unicode/utf16"

	"github.com/ochairo/reloaded/internal/domain/entities"
)

// Compiled XML chunk types and flags
const (
	chunkStringPool   = 0x0001
	chunkXML          = 0x0003
	chunkStartElement = 0x0102

	stringPoolHeaderSize = 28
	stringPoolUTF8Flag   = 1 << 8

	noStringIndex   = 0xFFFFFFFF
	valueTypeString = 0x03
)

var errMalformedManifest = errors.New("malformed binary manifest")

var le = binary.LittleEndian

// decodeBinaryManifest reads a compiled AndroidManifest.xml. Permissions come from
// uses-permission elements; a manifest with a string pool but no elements falls back
// to matching each pool string on its own.
func decodeBinaryManifest(data []byte) (*entities.PackageInfo, error) {
	if len(data) < 8 || le.Uint16(data) != chunkXML {
		return nil, errMalformedManifest
	}
	headerSize := int(le.Uint16(data[2:]))
	total := int(le.Uint32(data[4:]))
	if headerSize < 8 || total < headerSize || total > len(data) {
		return nil, errMalformedManifest
	}
	data = data[:total]

	info := &entities.PackageInfo{}
	perms := newPermissionSet()
	var pool []string
	elements := 0

	for off := headerSize; off+8 <= len(data); {
		size := int(le.Uint32(data[off+4:]))
		if size < 8 || size > len(data)-off {
			return nil, errMalformedManifest
		}
		chunk := data[off : off+size]

		switch le.Uint16(chunk) {
		case chunkStringPool:
			// Only the first pool holds manifest strings
			if pool == nil {
				p, err := decodeStringPool(chunk)
				if err != nil {
					return nil, err
				}
				pool = p
			}

		case chunkStartElement:
			if pool == nil {
				return nil, errMalformedManifest
			}
			name, attrs, err := decodeStartElement(chunk, pool)
			if err != nil {
				return nil, err
			}
			elements++
			switch name {
			case "manifest":
				info.PackageName = attrs["package"]
				info.VersionName = attrs["versionName"]
			case "uses-permission", "uses-permission-sdk-23":
				perms.add(attrs["name"])
			}
		}

		off += size
	}

	if pool == nil {
		return nil, errMalformedManifest
	}
	if elements == 0 {
		for _, s := range pool {
			if permissionName.MatchString(s) {
				perms.add(s)
			}
		}
	}

	info.Permissions = perms.list
	return info, nil
}

func decodeStringPool(chunk []byte) ([]string, error) {
	if len(chunk) < stringPoolHeaderSize {
		return nil, errMalformedManifest
	}
	headerSize := int(le.Uint16(chunk[2:]))
	count := int(le.Uint32(chunk[8:]))
	flags := le.Uint32(chunk[16:])
	stringsStart := int(le.Uint32(chunk[20:]))

	if headerSize < stringPoolHeaderSize || headerSize > len(chunk) ||
		count < 0 || count > (len(chunk)-headerSize)/4 ||
		stringsStart < 0 || stringsStart > len(chunk) {
		return nil, errMalformedManifest
	}

	utf8Pool := flags&stringPoolUTF8Flag != 0
	strs := make([]string, count)
	for i := range strs {
		off := int(le.Uint32(chunk[headerSize+4*i:]))
		if off < 0 || off > len(chunk)-stringsStart {
			return nil, errMalformedManifest
		}
		var (
			s   string
			err error
		)
		if utf8Pool {
			s, err = decodeUTF8PoolString(chunk, stringsStart+off)
		} else {
			s, err = decodeUTF16PoolString(chunk, stringsStart+off)
		}
		if err != nil {
			return nil, err
		}
		strs[i] = s
	}
	return strs, nil
}

// utf8PoolLength reads a one or two byte length prefix
func utf8PoolLength(b []byte, off int) (int, int, error) {
	if off >= len(b) {
		return 0, 0, errMalformedManifest
	}
	if b[off]&0x80 == 0 {
		return int(b[off]), 1, nil
	}
	if off+1 >= len(b) {
		return 0, 0, errMalformedManifest
	}
	return int(b[off]&0x7f)<<8 | int(b[off+1]), 2, nil
}

func decodeUTF8PoolString(b []byte, off int) (string, error) {
	// UTF-16 length first, then the encoded byte length
	_, n, err := utf8PoolLength(b, off)
	if err != nil {
		return "", err
	}
	off += n
	length, n, err := utf8PoolLength(b, off)
	if err != nil {
		return "", err
	}
	off += n
	if length > len(b)-off {
		return "", errMalformedManifest
	}
	return string(b[off : off+length]), nil
}

func decodeUTF16PoolString(b []byte, off int) (string, error) {
	if off+2 > len(b) {
		return "", errMalformedManifest
	}
	length := int(le.Uint16(b[off:]))
	off += 2
	if length&0x8000 != 0 {
		if off+2 > len(b) {
			return "", errMalformedManifest
		}
		length = (length&0x7fff)<<16 | int(le.Uint16(b[off:]))
		off += 2
	}
	if length > (len(b)-off)/2 {
		return "", errMalformedManifest
	}

	units := make([]uint16, length)
	for i := range units {
		units[i] = le.Uint16(b[off+2*i:])
	}
	return string(utf16.Decode(units)), nil
}

// decodeStartElement returns the element name and its string-valued attributes by local name
func decodeStartElement(chunk []byte, pool []string) (string, map[string]string, error) {
	headerSize := int(le.Uint16(chunk[2:]))
	if headerSize < 8 || headerSize+20 > len(chunk) {
		return "", nil, errMalformedManifest
	}
	ext := chunk[headerSize:]
	name, ok := poolString(pool, le.Uint32(ext[4:]))
	if !ok {
		return "", nil, errMalformedManifest
	}
	attrStart := int(le.Uint16(ext[8:]))
	attrSize := int(le.Uint16(ext[10:]))
	attrCount := int(le.Uint16(ext[12:]))
	if attrSize < 20 {
		return "", nil, errMalformedManifest
	}

	attrs := make(map[string]string, attrCount)
	for i := 0; i < attrCount; i++ {
		off := attrStart + i*attrSize
		if off+20 > len(ext) {
			return "", nil, errMalformedManifest
		}
		attr := ext[off:]
		key, ok := poolString(pool, le.Uint32(attr[4:]))
		if !ok {
			continue
		}
		value, ok := poolString(pool, le.Uint32(attr[8:]))
		if !ok && attr[15] == valueTypeString {
			value, ok = poolString(pool, le.Uint32(attr[16:]))
		}
		if ok {
			attrs[key] = value
		}
	}
	return name, attrs, nil
}

func poolString(pool []string, index uint32) (string, bool) {
	if index == noStringIndex || uint64(index) >= uint64(len(pool)) {
		return "", false
	}
	return pool[index], true
}

// permissionSet keeps permission names unique in first-seen order
type permissionSet struct {
	seen map[string]bool
	list []string
}

func newPermissionSet() *permissionSet {
	return &permissionSet{seen: make(map[string]bool)}
}

func (s *permissionSet) add(name string) {
	if name == "" || s.seen[name] {
		return
	}
	s.seen[name] = true
	s.list = append(s.list, name)
}

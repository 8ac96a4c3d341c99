package gateways

import (
	"testing"
)

// FuzzDecodeBinaryManifest checks that arbitrary manifest bytes never panic
func FuzzDecodeBinaryManifest(f *testing.F) {
	f.Add(buildCompiledManifest(false, nil, []testElement{
		{name: "manifest", attrs: []testAttr{{"package", "com.example.app"}}},
		usesPermission("android.permission.INTERNET"),
	}))
	f.Add(buildCompiledManifest(true, []string{"android.permission.CAMERA"}, nil))
	f.Add([]byte{0x03, 0x00, 0x08, 0x00, 0xff, 0xff, 0xff, 0xff})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		info, err := decodeBinaryManifest(data)
		if err == nil && info == nil {
			t.Error("decodeBinaryManifest() returned nil info without error")
		}
		_ = scanPermissionStrings(data)
	})
}

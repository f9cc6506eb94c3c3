package shortcut

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseChord_ResolvesModPerPlatform(t *testing.T) {
	mac, err := ParseChord("mod+shift+k", PlatformMac)
	require.NoError(t, err)
	require.Equal(t, "k", mac.Key)
	require.Equal(t, []string{"meta", "shift"}, mac.Modifiers)

	other, err := ParseChord("mod+shift+k", PlatformOther)
	require.NoError(t, err)
	require.Equal(t, []string{"ctrl", "shift"}, other.Modifiers)
}

func TestParseChord_OrderIndependent(t *testing.T) {
	a, _ := ParseChord("shift+ctrl+k", PlatformOther)
	b, _ := ParseChord("ctrl+shift+k", PlatformOther)
	require.True(t, a.equals(b))
}

func TestEngine_DispatchFiresRegisteredHandler(t *testing.T) {
	e := New(PlatformOther)
	fired := false
	require.NoError(t, e.Register("mod+k", func() { fired = true }, false))

	didFire, preventDefault := e.Dispatch("ctrl+k", false)
	require.True(t, didFire)
	require.True(t, preventDefault)
	require.True(t, fired)
}

func TestEngine_RegistrationOrderShadowsDuplicates(t *testing.T) {
	e := New(PlatformOther)
	var order []string
	require.NoError(t, e.Register("mod+k", func() { order = append(order, "first") }, false))
	require.NoError(t, e.Register("mod+k", func() { order = append(order, "second") }, false))

	e.Dispatch("ctrl+k", false)
	require.Equal(t, []string{"first"}, order)
}

func TestEngine_SkipsNonEditingExemptBindingWhileEditing(t *testing.T) {
	e := New(PlatformOther)
	fired := false
	require.NoError(t, e.Register("mod+k", func() { fired = true }, false))

	didFire, _ := e.Dispatch("ctrl+k", true)
	require.False(t, didFire)
	require.False(t, fired)
}

func TestEngine_IgnoreWhenEditingOptOutStillFires(t *testing.T) {
	e := New(PlatformOther)
	fired := false
	require.NoError(t, e.Register("mod+k", func() { fired = true }, true))

	didFire, _ := e.Dispatch("ctrl+k", true)
	require.True(t, didFire)
	require.True(t, fired)
}

func TestEngine_UnregisterRemovesBinding(t *testing.T) {
	e := New(PlatformOther)
	require.NoError(t, e.Register("mod+k", func() {}, false))
	require.NoError(t, e.Unregister("mod+k"))

	didFire, _ := e.Dispatch("ctrl+k", false)
	require.False(t, didFire)
}

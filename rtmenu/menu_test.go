package rtmenu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMenuAttributes(t *testing.T) {
	require := require.New(t)

	t.Run("Get and Set", func(t *testing.T) {
		menu := NewMenu(MainMenu).
			SetAttribute(AttrTBR, float64(100)).
			SetAttribute(AttrBasalRate, 0.85)

		require.Equal(MainMenu, menu.Type())

		val, err := menu.Attribute(AttrTBR)
		require.NoError(err)
		require.Equal(float64(100), val)

		val, err = menu.Attribute(AttrBasalRate)
		require.NoError(err)
		require.Equal(0.85, val)
	})

	t.Run("Missing attribute", func(t *testing.T) {
		menu := NewMenu(MainMenu)
		_, err := menu.Attribute(AttrMessage)
		require.ErrorIs(err, ErrAttributeNotFound)
	})

	t.Run("Stable attribute order", func(t *testing.T) {
		menu := NewMenu(TBRMenu).
			SetAttribute(AttrBasalRate, 0.5).
			SetAttribute(AttrTBR, float64(50)).
			SetAttribute(AttrRuntime, Time{Hour: 1, Minute: 30})

		require.Equal([]Attribute{AttrBasalRate, AttrTBR, AttrRuntime}, menu.Attributes())
	})

	t.Run("Overwrite keeps position", func(t *testing.T) {
		menu := NewMenu(TBRMenu).
			SetAttribute(AttrTBR, float64(50)).
			SetAttribute(AttrRuntime, Time{Minute: 15}).
			SetAttribute(AttrTBR, float64(75))

		require.Equal([]Attribute{AttrTBR, AttrRuntime}, menu.Attributes())
		val, err := menu.Attribute(AttrTBR)
		require.NoError(err)
		require.Equal(float64(75), val)
	})
}

func TestTime(t *testing.T) {
	require := require.New(t)

	require.Equal(90, Time{Hour: 1, Minute: 30}.Minutes())
	require.Equal(30, Time{Minute: 30}.Minutes())
	require.Equal("1:05", Time{Hour: 1, Minute: 5}.String())
}

func TestMenuTypeString(t *testing.T) {
	require := require.New(t)

	require.Equal("MAIN_MENU", MainMenu.String())
	require.Equal("STOP", StopMenu.String())
	require.Equal("WARNING_OR_ERROR", WarningOrErrorMenu.String())
	require.Equal("UNKNOWN", MenuType(9999).String())
}

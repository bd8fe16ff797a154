package session

import "path"

// Known annunciators, in display order.
var Annunciators = []string{"AnnUpDown", "AnnShift", "AnnPrint", "AnnRun", "AnnG", "AnnRAD"}

// Known worker preferences.
var PreferenceKeys = []string{"invSingular", "matrixOverflow"}

// Assets builds the image paths handed to the surface.
type Assets struct {
	Dir     string // image directory
	Display string // display bitmap written by the worker
}

// DefaultAssets mirrors the worker's working-directory layout.
func DefaultAssets() Assets {
	return Assets{Dir: "Images", Display: "display.gif"}
}

// Annunciator is the lit image for annunciator id.
func (a Assets) Annunciator(id string) string {
	return path.Join(a.Dir, id+".png")
}

// BlankAnnunciator is the image for an unlit annunciator.
func (a Assets) BlankAnnunciator() string {
	return path.Join(a.Dir, "BlankAnn.png")
}

// PressedKey is the image of key id held down.
func (a Assets) PressedKey(id string) string {
	return path.Join(a.Dir, "d", id+".gif")
}

// ReleasedKey is the image of key id at rest.
func (a Assets) ReleasedKey(id string) string {
	return path.Join(a.Dir, "u", id+".gif")
}

package lambda

import "bytes"

// Profile describes a supported hardware configuration.
type Profile struct {
	Name     string
	Wheels   int
	Identity []byte
}

// Profiles lists the supported configurations, indexed by wheel count - 1.
// Both use 10 position 25mm wheels and SmartShutters on ports A and B.
var Profiles = []Profile{
	{
		Name:     "WA-25",
		Wheels:   1,
		Identity: []byte("\xfd10-3WA-25WB-NCWC-NCSA-VSSB-VS\r"),
	},
	{
		Name:     "WA-25/WB-25",
		Wheels:   2,
		Identity: []byte("\xfd10-3WA-25WB-25WC-NCSA-VSSB-VS\r"),
	},
}

// ProfileFor returns the profile for the declared wheel count.
func ProfileFor(wheels int) (Profile, error) {
	for _, p := range Profiles {
		if p.Wheels == wheels {
			return p, nil
		}
	}
	return Profile{}, &ArgumentError{Name: "wheels", Value: wheels, Min: 1, Max: MaxWheels + 1}
}

// IdentifyProfile finds the profile reporting the identity response.
func IdentifyProfile(response []byte) (Profile, bool) {
	for _, p := range Profiles {
		if bytes.Equal(p.Identity, response) {
			return p, true
		}
	}
	return Profile{}, false
}

package browse

import "strings"

// Selection is one host's date/device/serial choice. Empty means "-- Select --".
type Selection struct {
	Date   string `json:"date"`
	Device string `json:"device"`
	Serial string `json:"serial"`
}

// Complete reports whether every level has a choice.
func (s Selection) Complete() bool {
	return s.Date != "" && s.Device != "" && s.Serial != ""
}

// Stage is how far a selection resolved.
type Stage int

const (
	StageNoHost Stage = iota
	StageNoFolders
	StageDate
	StageDevice
	StageSerial
	StageReady
)

func (s Stage) String() string {
	switch s {
	case StageNoHost:
		return "no-host"
	case StageNoFolders:
		return "no-folders"
	case StageDate:
		return "date"
	case StageDevice:
		return "device"
	case StageSerial:
		return "serial"
	case StageReady:
		return "ready"
	}
	return "unknown"
}

// View is the resolved state of the cascading selectors for one host.
type View struct {
	Host     string
	BaseDir  string
	Stage    Stage
	Dates    []string
	Devices  []string
	Serials  []string
	Selected Selection // only choices still present in the option lists
	Target   string    // set once Stage is StageReady
	Err      error     // listing failure at the level where the cascade stopped
}

// Resolve runs date -> device -> serial, stopping at the first level without
// a valid choice. Stale choices that are no longer listed count as unselected.
func (n *Navigator) Resolve(host string, sel Selection) *View {
	host = strings.TrimSpace(host)
	v := &View{Host: host}
	if host == "" {
		v.Stage = StageNoHost
		return v
	}
	v.BaseDir = n.BaseDir(host)

	dates, err := n.ListSubfolders(host)
	if err != nil || len(dates) == 0 {
		v.Stage = StageNoFolders
		v.Err = err
		return v
	}
	v.Dates = sortedDesc(dates)
	v.Stage = StageDate
	if !contains(v.Dates, sel.Date) {
		return v
	}
	v.Selected.Date = sel.Date

	devices, err := n.ListSubfolders(host, sel.Date)
	v.Devices = sortedAsc(devices)
	v.Stage = StageDevice
	if err != nil {
		v.Err = err
		return v
	}
	if !contains(v.Devices, sel.Device) {
		return v
	}
	v.Selected.Device = sel.Device

	serials, err := n.ListSubfolders(host, sel.Date, sel.Device)
	v.Serials = sortedAsc(serials)
	v.Stage = StageSerial
	if err != nil {
		v.Err = err
		return v
	}
	if !contains(v.Serials, sel.Serial) {
		return v
	}
	v.Selected.Serial = sel.Serial

	v.Stage = StageReady
	v.Target = n.TargetFile(host, v.Selected)
	return v
}

package devices

// SunSpec devices carry no static table: the model chain is surveyed on
// the device and the known models are mapped at their base address.
func sunSpec() Descriptor {
	return Descriptor{
		Model:          ModelSunSpec,
		Manufacturer:   "SunSpec",
		Name:           "SunSpec device",
		Link:           LinkTCP,
		DefaultPort:    502,
		DefaultSlaveId: 1,
		MinSlaveId:     1,
		MaxSlaveId:     247,
		Survey:         true,
	}
}

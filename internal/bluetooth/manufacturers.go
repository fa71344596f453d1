package bluetooth

// LookupManufacturer returns a short vendor name for a Bluetooth SIG company
// ID, limited to makers of the personal devices the finder lists. Unnamed
// advertisements from other vendors (chipsets, smart-home gear) stay
// unlabelled.
func LookupManufacturer(companyID uint16) string {
	return personalVendors[companyID]
}

var personalVendors = map[uint16]string{
	// Phones, earbuds and watches
	0x004C: "Apple",
	0x00E0: "Google",
	0x0075: "Samsung",
	0x0310: "Xiaomi",
	0x0157: "Huawei",
	0x0060: "Motorola",

	// Headphones and speakers
	0x0087: "Bose",
	0x012D: "Sony",
	0x0131: "JBL",
	0x00E3: "Harman",
	0x01DA: "Jabra",
	0x0047: "Plantronics",
	0x02A9: "Anker",

	// Trackers
	0x02FF: "Tile",

	// Wearables
	0x038F: "Garmin",
	0x03DA: "Fitbit",
	0x0269: "Oura",
	0x0473: "Withings",
}

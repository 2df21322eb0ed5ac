package zcl

// Cluster IDs referenced by the gateway.
const (
	ClusterBasic        uint16 = 0x0000
	ClusterIdentify     uint16 = 0x0003
	ClusterOnOff        uint16 = 0x0006
	ClusterLevelControl uint16 = 0x0008
	ClusterTime         uint16 = 0x000A
	ClusterOTA          uint16 = 0x0019
	ClusterTemperature  uint16 = 0x0402
	ClusterIASZone      uint16 = 0x0500
)

var standardClusters = []ClusterDef{
	{ID: 0x0000, Name: "Basic"},
	{ID: 0x0001, Name: "Power Configuration"},
	{ID: 0x0002, Name: "Device Temperature Configuration"},
	{ID: 0x0003, Name: "Identify", Commands: []CommandDef{
		{ID: 0x00, Name: "Identify", Direction: DirectionToServer},
		{ID: 0x01, Name: "IdentifyQuery", Direction: DirectionToServer},
		{ID: 0x40, Name: "TriggerEffect", Direction: DirectionToServer},
		{ID: 0x00, Name: "IdentifyQueryResponse", Direction: DirectionToClient},
	}},
	{ID: 0x0004, Name: "Groups", Commands: []CommandDef{
		{ID: 0x00, Name: "AddGroup", Direction: DirectionToServer},
		{ID: 0x01, Name: "ViewGroup", Direction: DirectionToServer},
		{ID: 0x02, Name: "GetGroupMembership", Direction: DirectionToServer},
		{ID: 0x03, Name: "RemoveGroup", Direction: DirectionToServer},
		{ID: 0x04, Name: "RemoveAllGroups", Direction: DirectionToServer},
		{ID: 0x05, Name: "AddGroupIfIdentifying", Direction: DirectionToServer},
	}},
	{ID: 0x0005, Name: "Scenes", Commands: []CommandDef{
		{ID: 0x00, Name: "AddScene", Direction: DirectionToServer},
		{ID: 0x01, Name: "ViewScene", Direction: DirectionToServer},
		{ID: 0x02, Name: "RemoveScene", Direction: DirectionToServer},
		{ID: 0x03, Name: "RemoveAllScenes", Direction: DirectionToServer},
		{ID: 0x04, Name: "StoreScene", Direction: DirectionToServer},
		{ID: 0x05, Name: "RecallScene", Direction: DirectionToServer},
		{ID: 0x06, Name: "GetSceneMembership", Direction: DirectionToServer},
	}},
	{ID: 0x0006, Name: "On/Off", Commands: []CommandDef{
		{ID: 0x00, Name: "Off", Direction: DirectionToServer},
		{ID: 0x01, Name: "On", Direction: DirectionToServer},
		{ID: 0x02, Name: "Toggle", Direction: DirectionToServer},
		{ID: 0x40, Name: "OffWithEffect", Direction: DirectionToServer},
		{ID: 0x41, Name: "OnWithRecallGlobalScene", Direction: DirectionToServer},
		{ID: 0x42, Name: "OnWithTimedOff", Direction: DirectionToServer},
	}},
	{ID: 0x0007, Name: "On/Off Switch Configuration"},
	{ID: 0x0008, Name: "Level Control", Commands: []CommandDef{
		{ID: 0x00, Name: "MoveToLevel", Direction: DirectionToServer},
		{ID: 0x01, Name: "Move", Direction: DirectionToServer},
		{ID: 0x02, Name: "Step", Direction: DirectionToServer},
		{ID: 0x03, Name: "Stop", Direction: DirectionToServer},
		{ID: 0x04, Name: "MoveToLevelWithOnOff", Direction: DirectionToServer},
		{ID: 0x05, Name: "MoveWithOnOff", Direction: DirectionToServer},
		{ID: 0x06, Name: "StepWithOnOff", Direction: DirectionToServer},
		{ID: 0x07, Name: "StopWithOnOff", Direction: DirectionToServer},
	}},
	{ID: 0x0009, Name: "Alarms"},
	{ID: 0x000A, Name: "Time"},
	{ID: 0x000B, Name: "RSSI Location"},
	{ID: 0x000C, Name: "Analog Input (Basic)"},
	{ID: 0x000D, Name: "Analog Output (Basic)"},
	{ID: 0x000E, Name: "Analog Value (Basic)"},
	{ID: 0x000F, Name: "Binary Input (Basic)"},
	{ID: 0x0010, Name: "Binary Output (Basic)"},
	{ID: 0x0011, Name: "Binary Value (Basic)"},
	{ID: 0x0012, Name: "Multistate Input (Basic)"},
	{ID: 0x0013, Name: "Multistate Output (Basic)"},
	{ID: 0x0014, Name: "Multistate Value (Basic)"},
	{ID: 0x0015, Name: "Commissioning"},
	{ID: 0x0019, Name: "OTA Upgrade"},
	{ID: 0x001A, Name: "Power Profile"},
	{ID: 0x001B, Name: "Appliance Control"},
	{ID: 0x0020, Name: "Poll Control"},
	{ID: 0x0021, Name: "Green Power"},
	{ID: 0x0100, Name: "Shade Configuration"},
	{ID: 0x0101, Name: "Door Lock", Commands: []CommandDef{
		{ID: 0x00, Name: "LockDoor", Direction: DirectionToServer},
		{ID: 0x01, Name: "UnlockDoor", Direction: DirectionToServer},
		{ID: 0x02, Name: "Toggle", Direction: DirectionToServer},
	}},
	{ID: 0x0102, Name: "Window Covering", Commands: []CommandDef{
		{ID: 0x00, Name: "UpOpen", Direction: DirectionToServer},
		{ID: 0x01, Name: "DownClose", Direction: DirectionToServer},
		{ID: 0x02, Name: "Stop", Direction: DirectionToServer},
		{ID: 0x04, Name: "GoToLiftValue", Direction: DirectionToServer},
		{ID: 0x05, Name: "GoToLiftPercentage", Direction: DirectionToServer},
		{ID: 0x07, Name: "GoToTiltValue", Direction: DirectionToServer},
		{ID: 0x08, Name: "GoToTiltPercentage", Direction: DirectionToServer},
	}},
	{ID: 0x0103, Name: "Barrier Control"},
	{ID: 0x0200, Name: "Pump Configuration and Control"},
	{ID: 0x0201, Name: "Thermostat"},
	{ID: 0x0202, Name: "Fan Control"},
	{ID: 0x0204, Name: "Thermostat User Interface Configuration"},
	{ID: 0x0300, Name: "Color Control", Commands: []CommandDef{
		{ID: 0x00, Name: "MoveToHue", Direction: DirectionToServer},
		{ID: 0x01, Name: "MoveHue", Direction: DirectionToServer},
		{ID: 0x02, Name: "StepHue", Direction: DirectionToServer},
		{ID: 0x03, Name: "MoveToSaturation", Direction: DirectionToServer},
		{ID: 0x04, Name: "MoveSaturation", Direction: DirectionToServer},
		{ID: 0x05, Name: "StepSaturation", Direction: DirectionToServer},
		{ID: 0x06, Name: "MoveToHueAndSaturation", Direction: DirectionToServer},
		{ID: 0x07, Name: "MoveToColor", Direction: DirectionToServer},
		{ID: 0x08, Name: "MoveColor", Direction: DirectionToServer},
		{ID: 0x09, Name: "StepColor", Direction: DirectionToServer},
		{ID: 0x0A, Name: "MoveToColorTemperature", Direction: DirectionToServer},
		{ID: 0x47, Name: "StopMoveStep", Direction: DirectionToServer},
		{ID: 0x4B, Name: "MoveColorTemperature", Direction: DirectionToServer},
		{ID: 0x4C, Name: "StepColorTemperature", Direction: DirectionToServer},
	}},
	{ID: 0x0301, Name: "Ballast Configuration"},
	{ID: 0x0400, Name: "Illuminance Measurement"},
	{ID: 0x0401, Name: "Illuminance Level Sensing"},
	{ID: 0x0402, Name: "Temperature Measurement"},
	{ID: 0x0403, Name: "Pressure Measurement"},
	{ID: 0x0404, Name: "Flow Measurement"},
	{ID: 0x0405, Name: "Relative Humidity"},
	{ID: 0x0406, Name: "Occupancy Sensing"},
	{ID: 0x0408, Name: "Soil Moisture"},
	{ID: 0x0409, Name: "pH Measurement"},
	{ID: 0x040C, Name: "Carbon Monoxide (CO) Measurement"},
	{ID: 0x040D, Name: "Carbon Dioxide (CO2) Measurement"},
	{ID: 0x042A, Name: "PM2.5 Measurement"},
	{ID: 0x042B, Name: "Formaldehyde Measurement"},
	{ID: 0x0500, Name: "IAS Zone", Commands: []CommandDef{
		{ID: 0x00, Name: "ZoneEnrollResponse", Direction: DirectionToServer},
		{ID: 0x00, Name: "ZoneStatusChangeNotification", Direction: DirectionToClient},
		{ID: 0x01, Name: "ZoneEnrollRequest", Direction: DirectionToClient},
	}},
	{ID: 0x0501, Name: "IAS ACE"},
	{ID: 0x0502, Name: "IAS Warning Device"},
	{ID: 0x0702, Name: "Metering"},
	{ID: 0x0B00, Name: "Appliance Identification"},
	{ID: 0x0B01, Name: "Meter Identification"},
	{ID: 0x0B02, Name: "Appliance Events and Alerts"},
	{ID: 0x0B03, Name: "Appliance Statistics"},
	{ID: 0x0B04, Name: "Electrical Measurement"},
	{ID: 0x0B05, Name: "Diagnostics"},
	{ID: 0x1000, Name: "Touchlink Commissioning"},
}

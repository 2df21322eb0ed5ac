package zcl

import "fmt"

// General (profile wide) command IDs.
const (
	CmdReadAttributes           uint8 = 0x00
	CmdReadAttributesResponse   uint8 = 0x01
	CmdWriteAttributes          uint8 = 0x02
	CmdWriteAttributesUndivided uint8 = 0x03
	CmdWriteAttributesResponse  uint8 = 0x04
	CmdWriteAttributesNoResp    uint8 = 0x05
	CmdConfigureReporting       uint8 = 0x06
	CmdConfigureReportingResp   uint8 = 0x07
	CmdReadReportingConfig      uint8 = 0x08
	CmdReadReportingConfigResp  uint8 = 0x09
	CmdReportAttributes         uint8 = 0x0A
	CmdDefaultResponse          uint8 = 0x0B
	CmdDiscoverAttributes       uint8 = 0x0C
	CmdDiscoverAttributesResp   uint8 = 0x0D
)

var generalCommandNames = map[uint8]string{
	CmdReadAttributes:           "ReadAttributes",
	CmdReadAttributesResponse:   "ReadAttributesResponse",
	CmdWriteAttributes:          "WriteAttributes",
	CmdWriteAttributesUndivided: "WriteAttributesUndivided",
	CmdWriteAttributesResponse:  "WriteAttributesResponse",
	CmdWriteAttributesNoResp:    "WriteAttributesNoResponse",
	CmdConfigureReporting:       "ConfigureReporting",
	CmdConfigureReportingResp:   "ConfigureReportingResponse",
	CmdReadReportingConfig:      "ReadReportingConfiguration",
	CmdReadReportingConfigResp:  "ReadReportingConfigurationResponse",
	CmdReportAttributes:         "ReportAttributes",
	CmdDefaultResponse:          "DefaultResponse",
	CmdDiscoverAttributes:       "DiscoverAttributes",
	CmdDiscoverAttributesResp:   "DiscoverAttributesResponse",
}

// GeneralCommandName names a profile wide command.
func GeneralCommandName(id uint8) string {
	if n, ok := generalCommandNames[id]; ok {
		return n
	}
	return fmt.Sprintf("Unknown(0x%02X)", id)
}

// ZCL status codes
const (
	StatusSuccess                  uint8 = 0x00
	StatusFailure                  uint8 = 0x01
	StatusMalformedCommand         uint8 = 0x80
	StatusUnsupClusterCommand      uint8 = 0x81
	StatusUnsupGeneralCommand      uint8 = 0x82
	StatusUnsupManufClusterCommand uint8 = 0x83
	StatusUnsupManufGeneralCommand uint8 = 0x84
	StatusInvalidField             uint8 = 0x85
	StatusUnsupportedAttribute     uint8 = 0x86
	StatusInvalidValue             uint8 = 0x87
	StatusReadOnly                 uint8 = 0x88
	StatusInsufficientSpace        uint8 = 0x89
	StatusNotFound                 uint8 = 0x8B
	StatusUnreportableAttribute    uint8 = 0x8C
	StatusInvalidDataType          uint8 = 0x8D
	StatusHardwareFailure          uint8 = 0xC0
	StatusSoftwareFailure          uint8 = 0xC1
)

var statusNames = map[uint8]string{
	StatusSuccess:                  "Success",
	StatusFailure:                  "Failure",
	StatusMalformedCommand:         "MalformedCommand",
	StatusUnsupClusterCommand:      "UnsupportedClusterCommand",
	StatusUnsupGeneralCommand:      "UnsupportedGeneralCommand",
	StatusUnsupManufClusterCommand: "UnsupportedManufacturerClusterCommand",
	StatusUnsupManufGeneralCommand: "UnsupportedManufacturerGeneralCommand",
	StatusInvalidField:             "InvalidField",
	StatusUnsupportedAttribute:     "UnsupportedAttribute",
	StatusInvalidValue:             "InvalidValue",
	StatusReadOnly:                 "ReadOnly",
	StatusInsufficientSpace:        "InsufficientSpace",
	StatusNotFound:                 "NotFound",
	StatusUnreportableAttribute:    "UnreportableAttribute",
	StatusInvalidDataType:          "InvalidDataType",
	StatusHardwareFailure:          "HardwareFailure",
	StatusSoftwareFailure:          "SoftwareFailure",
}

// StatusName names a ZCL status code.
func StatusName(status uint8) string {
	if n, ok := statusNames[status]; ok {
		return n
	}
	return fmt.Sprintf("Unknown(0x%02X)", status)
}

package apitypes

import "fmt"

// ApiError is an RFC 7807 (problem+json) error returned by the VIIPER server.
type ApiError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e ApiError) Error() string {
	if e.Status == 0 && e.Title == "" {
		return "unknown error"
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

// Problem reports whether e carries anything; an empty JSON object is not a problem.
func (e ApiError) Problem() bool { return e.Status != 0 || e.Title != "" }

// Unauthorized builds the error returned for a rejected password.
func Unauthorized(detail string) *ApiError {
	return &ApiError{Status: 401, Title: "Unauthorized", Detail: detail}
}

type PingResponse struct {
	Server  string `json:"server"`
	Version string `json:"version"`
}

type BusListResponse struct {
	Buses []uint32 `json:"buses"`
}

type BusCreateResponse struct {
	BusID uint32 `json:"busId"`
}

type BusRemoveResponse struct {
	BusID uint32 `json:"busId"`
}

type Device struct {
	BusID uint32 `json:"busId"`
	DevId string `json:"devId"`
	Vid   string `json:"vid"`
	Pid   string `json:"pid"`
	Type  string `json:"type"`
}

// Address is the USBIP bus id of the device, e.g. "1-2".
func (d Device) Address() string { return fmt.Sprintf("%d-%s", d.BusID, d.DevId) }

type DevicesListResponse struct {
	Devices []Device `json:"devices"`
}

type DeviceRemoveResponse struct {
	BusID uint32 `json:"busId"`
	DevId string `json:"devId"`
}

type DeviceCreateRequest struct {
	Type      *string `json:"type"`
	IdVendor  *uint16 `json:"idVendor,omitempty"`
	IdProduct *uint16 `json:"idProduct,omitempty"`
	SubType   *uint8  `json:"subType,omitempty"`
}

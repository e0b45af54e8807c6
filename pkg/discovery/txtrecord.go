package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeServerTXT creates the TXT records of a bridge server.
func EncodeServerTXT(info *ServerInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	if info.Group != "" {
		txt[TXTKeyGroup] = info.Group
	}
	if info.DiscoveryPort != 0 {
		txt[TXTKeyDiscoveryPort] = strconv.FormatUint(uint64(info.DiscoveryPort), 10)
	}
	if info.Version != "" {
		txt[TXTKeyVersion] = info.Version
	}

	return txt
}

// DecodeServerTXT parses the TXT records of a bridge server into svc.
// Missing keys are left at their zero value.
func DecodeServerTXT(txt TXTRecordMap, svc *ServerService) error {
	svc.Group = txt[TXTKeyGroup]
	svc.Version = txt[TXTKeyVersion]

	if s, ok := txt[TXTKeyDiscoveryPort]; ok {
		p, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyDiscoveryPort, s)
		}
		svc.DiscoveryPort = uint16(p)
	}
	return nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, _ := strings.Cut(s, "=")
		if k != "" {
			txt[k] = v
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: instance name", ErrMissingRequired)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}

package engine

import "fmt"

// Opt identifies a per-handle transfer setting passed to [Handle.SetOpt].
type Opt int

// Transfer settings. The expected value type is noted for each.
const (
	OptURL            Opt = iota + 1 // string
	OptHTTPGet                       // bool, resets method to GET and drops any body
	OptPost                          // bool
	OptPostFields                    // string, implies OptPost
	OptUpload                        // bool, PUT with OptInFile as the body
	OptInFile                        // io.Reader
	OptInFileSize                    // int64, -1 when unknown
	OptCustomRequest                 // string, overrides the method
	OptHTTPHeader                    // []string of "Name: value" lines
	OptUserAgent                     // string
	OptTimeout                       // time.Duration, 0 disables
	OptConnectTimeout                // time.Duration, 0 uses the default
	OptFollowLocation                // bool
	OptMaxRedirs                     // int, -1 for unlimited
	OptReturnTransfer                // bool
	OptHeaderFunction                // HeaderFunc
	OptWriteTo                       // io.Writer
)

var optNames = map[Opt]string{
	OptURL:            "URL",
	OptHTTPGet:        "HTTPGET",
	OptPost:           "POST",
	OptPostFields:     "POSTFIELDS",
	OptUpload:         "UPLOAD",
	OptInFile:         "INFILE",
	OptInFileSize:     "INFILESIZE",
	OptCustomRequest:  "CUSTOMREQUEST",
	OptHTTPHeader:     "HTTPHEADER",
	OptUserAgent:      "USERAGENT",
	OptTimeout:        "TIMEOUT",
	OptConnectTimeout: "CONNECTTIMEOUT",
	OptFollowLocation: "FOLLOWLOCATION",
	OptMaxRedirs:      "MAXREDIRS",
	OptReturnTransfer: "RETURNTRANSFER",
	OptHeaderFunction: "HEADERFUNCTION",
	OptWriteTo:        "WRITETO",
}

func (o Opt) String() string {
	if name, ok := optNames[o]; ok {
		return name
	}

	return fmt.Sprintf("Opt(%d)", int(o))
}

// HeaderFunc receives every raw header line of a transfer, including the
// trailing CRLF. It must return len(line); any other value aborts the transfer.
type HeaderFunc func(line string) int

package paapi

import (
	"encoding/json"
	"io"

	"github.com/scizorman/go-ndjson"
)

type exportJSON struct {
	Info    ExportInfo `json:"info"`
	Exports []Export   `json:"exports"`
}

func WriteExportsToJSON(info ExportInfo, exports []Export, w io.Writer) error {
	data := exportJSON{
		Info:    info,
		Exports: exports,
	}
	return json.NewEncoder(w).Encode(&data)
}

func ReadExportsFromJSON(r io.Reader) (ExportInfo, []Export, error) {
	var data exportJSON

	err := json.NewDecoder(r).Decode(&data)
	if err != nil {
		return ExportInfo{}, nil, err
	}

	return data.Info, data.Exports, nil
}

// WriteExportsToNDJSON writes one export per line.
func WriteExportsToNDJSON(exports []Export, w io.Writer) error {
	if len(exports) == 0 {
		return nil
	}

	output, err := ndjson.Marshal(exports)
	if err != nil {
		return err
	}

	_, err = w.Write(output)
	return err
}

// ReadExportsFromNDJSON reads one export per line; an empty input is an
// empty list.
func ReadExportsFromNDJSON(r io.Reader) ([]Export, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var exports []Export
	err = ndjson.Unmarshal(data, &exports)
	if err != nil {
		return nil, err
	}

	return exports, nil
}

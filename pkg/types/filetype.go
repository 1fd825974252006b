package types

import (
	"fmt"
	"strconv"
)

type FileType uint8

const (
	// FileTypeUnknown is also what a deleted directory entry decodes to, so
	// it doubles as the tombstone marker.
	FileTypeUnknown FileType = iota
	FileTypeRegular
	FileTypeDir
)

var fileTypeNames = [...]string{
	FileTypeUnknown: "Unknown",
	FileTypeRegular: "Regular",
	FileTypeDir:     "Dir",
}

func (ft FileType) String() string {
	if err := ft.Validate(); err != nil {
		panic(err)
	}
	return fileTypeNames[ft]
}

func (ft FileType) Validate() error {
	if int(ft) >= len(fileTypeNames) {
		return fmt.Errorf(
			"validating file type `%d`: %w",
			ft,
			InvalidFileTypeErr,
		)
	}
	return nil
}

func (ft FileType) MarshalJSON() ([]byte, error) {
	if err := ft.Validate(); err != nil {
		return nil, err
	}
	return []byte(strconv.Quote(fileTypeNames[ft])), nil
}

func (ft *FileType) UnmarshalJSON(data []byte) error {
	name, err := strconv.Unquote(string(data))
	if err == nil {
		for candidate, candidateName := range fileTypeNames {
			if name == candidateName {
				*ft = FileType(candidate)
				return nil
			}
		}
	}
	return fmt.Errorf("unmarshaling file type `%s`: %w", data, InvalidFileTypeErr)
}

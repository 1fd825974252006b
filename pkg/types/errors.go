package types

import (
	"net/http"

	pz "github.com/weberc2/httpeasy"
)

type ConstError string

func (err ConstError) Error() string { return string(err) }

const (
	InvalidFileTypeErr ConstError = "invalid file type"

	// exhaustion
	OutOfBlocksErr   ConstError = "out of free blocks"
	OutOfInodesErr   ConstError = "out of free inodes"
	FileTableFullErr ConstError = "open file table is full"
	ProcFileTableErr ConstError = "too many open files in process"
	DirFullErr       ConstError = "directory is full"
	FileTooLargeErr  ConstError = "file too large"

	// not found
	NotFoundErr          ConstError = "no such file or directory"
	BadFileDescriptorErr ConstError = "bad file descriptor"

	// policy violations
	ExistsErr          ConstError = "file exists"
	NotADirErr         ConstError = "not a directory"
	IsADirErr          ConstError = "is a directory"
	NotEmptyErr        ConstError = "directory not empty"
	BusyErr            ConstError = "resource busy"
	NotWritableErr     ConstError = "file not opened for writing"
	NameTooLongErr     ConstError = "name too long"
	InvalidArgumentErr ConstError = "invalid argument"
)

// HTTPError maps the error onto the status the inspection API responds
// with.
func (err ConstError) HTTPError() *pz.HTTPError {
	status := http.StatusInternalServerError
	switch err {
	case NotFoundErr:
		status = http.StatusNotFound
	case NotADirErr, IsADirErr, NameTooLongErr, InvalidArgumentErr,
		InvalidFileTypeErr:
		status = http.StatusBadRequest
	case ExistsErr, NotEmptyErr, BusyErr:
		status = http.StatusConflict
	case NotWritableErr, BadFileDescriptorErr:
		status = http.StatusForbidden
	case OutOfBlocksErr, OutOfInodesErr, DirFullErr, FileTooLargeErr:
		status = http.StatusInsufficientStorage
	}
	return &pz.HTTPError{Status: status, Message: string(err)}
}

package utils

import "github.com/mahirjain10/quicksvg/internal/types"

const pattern = "status"

func InitStatusData(fileName string, originalName string, status string) *types.StatusData {
	return &types.StatusData{FileName: fileName, OriginalName: originalName, Status: status}
}

func InitStatusMessage(data *types.StatusData) *types.StatusMessage {
	return &types.StatusMessage{Pattern: pattern, Data: *data}
}

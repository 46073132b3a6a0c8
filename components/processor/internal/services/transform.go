// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package services

import (
	"github.com/LerianStudio/dispatcher/pkg/constant"
	"github.com/LerianStudio/dispatcher/pkg/model"
)

// Transform maps an inbound message to its processed record: the payload is
// prefixed, the status moves to Processing and the record is stamped with the
// current instant. All other fields are copied unchanged.
func (uc *UseCase) Transform(msg *model.Message) *model.ProcessedMessage {
	record := &model.ProcessedMessage{
		Message:     *msg,
		ProcessedAt: uc.now().UTC(),
	}

	record.Payload = constant.ProcessedPayloadPrefix + msg.Payload
	record.Status = model.StatusProcessing

	return record
}

// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package constant

// ProcessedPayloadPrefix marks a payload that went through the transformer.
const ProcessedPayloadPrefix = "PROCESSED_"

package acse

import (
	"errors"
	"fmt"

	"github.com/slonegd/go61850mms/ber"
)

const (
	TagAARQ byte = 0x60 // Application 0, Constructed
	TagAARE byte = 0x61 // Application 1, Constructed
	TagRLRQ byte = 0x62 // Application 2, Constructed (release request)
	TagRLRE byte = 0x63 // Application 3, Constructed (release response)
)

// ACSEPDU представляет разобранный ACSE PDU (AARQ/AARE/RLRQ/RLRE).
type ACSEPDU struct {
	Tag                     byte
	ApplicationContextName  []byte
	Result                  int
	ResultSourceDiagnostic  []byte
	Data                    []byte // вложенные пользовательские данные (обычно MMS PDU)
}

func (a *ACSEPDU) String() string {
	return fmt.Sprintf("ACSEPDU{Tag: 0x%02x, Result: %d, DataLen: %d}", a.Tag, a.Result, len(a.Data))
}

// parseTLVSequence walks a flat sequence of BER tag-length-value elements.
func parseTLVSequence(buffer []byte, fn func(tag byte, value []byte) error) error {
	pos := 0
	for pos < len(buffer) {
		tag := buffer[pos]
		pos++
		newPos, length, err := ber.DecodeLength(buffer, pos, len(buffer))
		if err != nil {
			return fmt.Errorf("tlv length: %w", err)
		}
		pos = newPos
		if pos+length > len(buffer) {
			return fmt.Errorf("tlv element 0x%02x overruns buffer", tag)
		}
		if err := fn(tag, buffer[pos:pos+length]); err != nil {
			return err
		}
		pos += length
	}
	return nil
}

func decodeIntegerValue(value []byte) int {
	n := 0
	for _, b := range value {
		n = n<<8 | int(b)
	}
	return n
}

// ParseACSEPDU разбирает ACSE PDU (AARQ/AARE) из Presentation user-data.
func ParseACSEPDU(buffer []byte) (*ACSEPDU, error) {
	if len(buffer) < 2 {
		return nil, errors.New("ACSE PDU too short")
	}

	pdu := &ACSEPDU{Tag: buffer[0]}

	pos, length, err := ber.DecodeLength(buffer, 1, len(buffer))
	if err != nil {
		return nil, fmt.Errorf("ACSE PDU length: %w", err)
	}
	end := pos + length
	if end > len(buffer) {
		return nil, fmt.Errorf("ACSE PDU truncated: need %d, have %d", end, len(buffer))
	}

	if err := parseTLVSequence(buffer[pos:end], func(tag byte, value []byte) error {
		switch tag {
		case 0xA1: // application-context-name
			pdu.ApplicationContextName = append([]byte(nil), value...)
		case 0xA2: // result
			return parseTLVSequence(value, func(t byte, v []byte) error {
				if t == 0x02 {
					pdu.Result = decodeIntegerValue(v)
				}
				return nil
			})
		case 0xA3: // result-source-diagnostic
			pdu.ResultSourceDiagnostic = append([]byte(nil), value...)
		case 0xBE: // user-information
			return parseUserInformation(value, pdu)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return pdu, nil
}

// parseUserInformation разбирает Association-data (Application 28): отбрасывает
// indirect-reference и извлекает вложенные данные (как правило, MMS PDU).
func parseUserInformation(value []byte, pdu *ACSEPDU) error {
	return parseTLVSequence(value, func(tag byte, v []byte) error {
		if tag != 0x28 { // Association-data
			return nil
		}
		return parseTLVSequence(v, func(t byte, iv []byte) error {
			if t == 0xA0 { // encoding: single-ASN1-type
				pdu.Data = append([]byte(nil), iv...)
			}
			return nil
		})
	})
}

// BuildAARE создаёт AARE (Association Response) PDU, принимающую ассоциацию
// (result=0, accepted).
func BuildAARE(userData []byte) []byte {
	aare := []byte{TagAARE}

	fixedPartLength := 9 + 5 + 7 + 2 + 2 + 3 + 2 + len(userData)
	aare = append(aare, ber.AppendLength(fixedPartLength)...)

	// aSO-context-name (same MMS OID as AARQ)
	aare = append(aare, 0xA1, 0x07, 0x06, 0x05, 0x28, 0xca, 0x22, 0x02, 0x03)

	// result (Context-specific 2, INTEGER 0 = accepted)
	aare = append(aare, 0xA2, 0x03, 0x02, 0x01, 0x00)

	// result-source-diagnostic (Context-specific 3): acse-service-user(1), null(0)
	aare = append(aare, 0xA3, 0x05, 0xA1, 0x03, 0x02, 0x01, 0x00)

	// user-information (Context-specific 30, Constructed)
	userInfoLength := 2 + 3 + 2 + len(userData)
	aare = append(aare, 0xBE)
	aare = append(aare, ber.AppendLength(userInfoLength)...)

	assocDataLength := 3 + 2 + len(userData)
	aare = append(aare, 0x28)
	aare = append(aare, ber.AppendLength(assocDataLength)...)
	aare = append(aare, 0x02, 0x01, 0x03)
	aare = append(aare, 0xA0)
	aare = append(aare, ber.AppendLength(len(userData))...)
	aare = append(aare, userData...)

	return aare
}

// BuildAARQ создаёт AARQ (Association Request) PDU.
// Возвращает захардкоженный AARQ.
func BuildAARQ(userData []byte) []byte {
	// Структура AARQ:
	// 60 55
	// aarq
	// a1 07 06 05 28 ca 22 02 03 - aSO-context-name: 1.0.9506.2.3 (MMS)
	// a2 07 06 05 29 01 87 67 01 - called-AP-title: ap-title-form2: 1.1.1.999.1 (iso.1.1.999.1)
	// a3 03 02 01 0c - called-AE-qualifier: aso-qualifier-form2: 12
	// a6 06 06 04 29 01 87 67 - calling-AP-title: ap-title-form2: 1.1.1.999 (iso.1.1.999)
	// a7 03 02 01 0c - calling-AE-qualifier: aso-qualifier-form2: 12
	// be 2f 28 2d - user-information: 1 item: Association-data
	// 02 01 03 - indirect-reference: 3
	// a0 28 - encoding: single-ASN1-type (0)
	// <userData>

	aarq := []byte{}

	// AARQ tag (Application 0, Constructed) = 0x60
	aarq = append(aarq, 0x60)

	// Вычисляем длину содержимого
	// aSO-context-name: 9 байт (a1 07 06 05 28 ca 22 02 03)
	// called-AP-title: 9 байт (a2 07 06 05 29 01 87 67 01)
	// called-AE-qualifier: 5 байт (a3 03 02 01 0c)
	// calling-AP-title: 8 байт (a6 06 06 04 29 01 87 67)
	// calling-AE-qualifier: 5 байт (a7 03 02 01 0c)
	// user-information: 4 байта заголовок + 3 байта + 2 байта + длина userData
	fixedPartLength := 9 + 9 + 5 + 8 + 5 + 4 + 3 + 2 + len(userData)
	totalLength := fixedPartLength

	// Добавляем длину
	if totalLength < 0x80 {
		aarq = append(aarq, byte(totalLength))
	} else if totalLength <= 0xFF {
		aarq = append(aarq, 0x81, byte(totalLength))
	} else {
		aarq = append(aarq, 0x82, byte(totalLength>>8), byte(totalLength&0xFF))
	}

	// aSO-context-name (Context-specific 1, Constructed)
	aarq = append(aarq, 0xA1, 0x07, 0x06, 0x05, 0x28, 0xca, 0x22, 0x02, 0x03)

	// called-AP-title (Context-specific 2, Constructed)
	aarq = append(aarq, 0xA2, 0x07, 0x06, 0x05, 0x29, 0x01, 0x87, 0x67, 0x01)

	// called-AE-qualifier (Context-specific 3, INTEGER)
	aarq = append(aarq, 0xA3, 0x03, 0x02, 0x01, 0x0C)

	// calling-AP-title (Context-specific 6, Constructed)
	aarq = append(aarq, 0xA6, 0x06, 0x06, 0x04, 0x29, 0x01, 0x87, 0x67)

	// calling-AE-qualifier (Context-specific 7, INTEGER)
	aarq = append(aarq, 0xA7, 0x03, 0x02, 0x01, 0x0C)

	// user-information (Context-specific 30, Constructed)
	// Вычисляем длину user-information содержимого
	// Правильная структура: Association-data = 47 байт
	//   = tag+length (2) + indirect-reference (3) + encoding (42) = 47
	//   где encoding = tag+length (2) + userData (40) = 42
	//
	// В коде разбито:
	//   3 = indirect-reference (02 01 03)
	//   1 = Association-data tag (28)
	//   1 = Association-data length (2d)
	//   1 = encoding tag (a0)
	//   1 = encoding length (28)
	//   len(userData) = 40 байт (MMS PDU)
	// Правильнее было бы: 2 (Association-data tag+length) + 3 (indirect-reference) + 42 (encoding) = 47
	userInfoLength := 3 + 1 + 1 + 1 + 1 + len(userData)
	aarq = append(aarq, 0xBE) // Context-specific 30
	if userInfoLength < 0x80 {
		aarq = append(aarq, byte(userInfoLength))
	} else if userInfoLength <= 0xFF {
		aarq = append(aarq, 0x81, byte(userInfoLength))
	} else {
		aarq = append(aarq, 0x82, byte(userInfoLength>>8), byte(userInfoLength&0xFF))
	}

	// Association-data (Application 28, Constructed)
	// Вычисляем длину Association-data содержимого
	// Правильная структура: 45 байт
	//   = indirect-reference (3) + encoding (42) = 45
	//   где encoding = tag+length (2) + userData (40) = 42
	//
	// В коде разбито (для компенсации недостающих байтов):
	//   2 = часть indirect-reference (02 01) - не хватает еще 1 байта (03)
	//   1 = оставшийся байт indirect-reference (03)
	//   1 = encoding tag (a0)
	//   1 = encoding length (28)
	//   len(userData) = 40 байт (MMS PDU)
	// Правильнее было бы: 3 (indirect-reference: 02 01 03) + 2 (encoding: a0 28) + 40 (userData) = 45
	assocDataLength := 2 + 1 + 1 + 1 + len(userData)
	aarq = append(aarq, 0x28) // Application 28
	if assocDataLength < 0x80 {
		aarq = append(aarq, byte(assocDataLength))
	} else if assocDataLength <= 0xFF {
		aarq = append(aarq, 0x81, byte(assocDataLength))
	} else {
		aarq = append(aarq, 0x82, byte(assocDataLength>>8), byte(assocDataLength&0xFF))
	}

	// indirect-reference (INTEGER 3)
	aarq = append(aarq, 0x02, 0x01, 0x03)

	// encoding: single-ASN1-type (Context-specific 0, Constructed)
	aarq = append(aarq, 0xA0)
	if len(userData) < 0x80 {
		aarq = append(aarq, byte(len(userData)))
	} else if len(userData) <= 0xFF {
		aarq = append(aarq, 0x81, byte(len(userData)))
	} else {
		aarq = append(aarq, 0x82, byte(len(userData)>>8), byte(len(userData)&0xFF))
	}
	aarq = append(aarq, userData...)

	return aarq
}

package iso7816

import (
	"strings"
	"testing"
)

func TestStatusWord_Classification(t *testing.T) {
	tests := []struct {
		name    string
		sw      StatusWord
		success bool
		warning bool
		err     bool
		trigger bool
		counter bool
	}{
		{name: "9000", sw: SW_NO_ERROR, success: true},
		{name: "61XX bytes available", sw: NewStatusWord(0x61, 0x1A), success: true},
		{name: "6283 deactivated", sw: SW_WARN_FILE_DEACTIVATED, warning: true},
		{name: "62XX triggering", sw: NewStatusWord(0x62, 0x10), warning: true, trigger: true},
		{name: "6281 is not triggering", sw: NewStatusWord(0x62, 0x81), warning: true},
		{name: "63C2 counter", sw: NewStatusWord(0x63, 0xC2), warning: true, counter: true},
		{name: "6403 triggering error", sw: NewStatusWord(0x64, 0x03), err: true, trigger: true},
		{name: "6985 GPO refused", sw: SW_ERR_COND_OF_USE_NOT_SAT, err: true},
		{name: "6A81 contactless disabled", sw: SW_ERR_FUNC_NOT_SUPPORTED, err: true},
		{name: "6A83 no record", sw: SW_ERR_RECORD_NOT_FOUND, err: true},
		{name: "9100 proprietary", sw: NewStatusWord(0x91, 0x00)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sw.IsSuccess(); got != tt.success {
				t.Errorf("IsSuccess = %v", got)
			}
			if got := tt.sw.IsWarning(); got != tt.warning {
				t.Errorf("IsWarning = %v", got)
			}
			if got := tt.sw.IsError(); got != tt.err {
				t.Errorf("IsError = %v", got)
			}
			if got := tt.sw.IsTriggeringByCard(); got != tt.trigger {
				t.Errorf("IsTriggeringByCard = %v", got)
			}
			if got := tt.sw.IsCounter(); got != tt.counter {
				t.Errorf("IsCounter = %v", got)
			}
		})
	}
}

func TestParseStatusWord(t *testing.T) {
	tests := []struct {
		in      string
		want    StatusWord
		wantErr bool
	}{
		{in: "6A81", want: SW_ERR_FUNC_NOT_SUPPORTED},
		{in: "6985", want: SW_ERR_COND_OF_USE_NOT_SAT},
		{in: "9000", want: SW_NO_ERROR},
		{in: "6a82", want: SW_ERR_FILE_NOT_FOUND},
		{in: "6A8", wantErr: true},
		{in: "6A810", wantErr: true},
		{in: "ZZZZ", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseStatusWord(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStatusWord(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatusWord(%q) = %04X, want %04X", tt.in, uint16(got), uint16(tt.want))
		}
	}
}

func TestStatusWord_Text(t *testing.T) {
	tests := []struct {
		sw      StatusWord
		str     string
		verbose string
	}{
		{SW_ERR_FUNC_NOT_SUPPORTED, "SW_ERR_FUNC_NOT_SUPPORTED", "[6A81] SW_ERR_FUNC_NOT_SUPPORTED"},
		{NewStatusWord(0x61, 0x20), "StatusWord(0x6120)", "32 bytes available"},
		{NewStatusWord(0x6C, 0x05), "StatusWord(0x6C05)", "correct Le is 5"},
		{NewStatusWord(0x63, 0xC3), "StatusWord(0x63C3)", "counter = 3"},
		{NewStatusWord(0x62, 0x10), "StatusWord(0x6210)", "Card expects query of 16 bytes"},
	}

	for _, tt := range tests {
		if got := tt.sw.String(); got != tt.str {
			t.Errorf("String(%04X) = %q, want %q", uint16(tt.sw), got, tt.str)
		}
		if got := tt.sw.Verbose(); !strings.Contains(got, tt.verbose) {
			t.Errorf("Verbose(%04X) = %q, want containing %q", uint16(tt.sw), got, tt.verbose)
		}
	}
}

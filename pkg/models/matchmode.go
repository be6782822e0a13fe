// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"fmt"
	"strconv"
	"strings"
)

// MatchMode is a game mode whose value is the number of players needed to fill one match.
type MatchMode int

const (
	MatchModeNone         MatchMode = 0
	MatchModeOneVsOne     MatchMode = 2
	MatchModeTwoVsTwo     MatchMode = 4
	MatchModeThreeVsThree MatchMode = 6
	MatchModeFourVsFour   MatchMode = 8
	MatchModeFiveVsFive   MatchMode = 10
)

var matchModeNames = map[MatchMode]string{
	MatchModeNone:         "None",
	MatchModeOneVsOne:     "OneVsOne",
	MatchModeTwoVsTwo:     "TwoVsTwo",
	MatchModeThreeVsThree: "ThreeVsThree",
	MatchModeFourVsFour:   "FourVsFour",
	MatchModeFiveVsFive:   "FiveVsFive",
}

var matchModesByName = func() map[string]MatchMode {
	m := make(map[string]MatchMode, len(matchModeNames))
	for mode, name := range matchModeNames {
		m[strings.ToLower(name)] = mode
	}
	return m
}()

// AllMatchModes lists every playable mode, None excluded.
func AllMatchModes() []MatchMode {
	return []MatchMode{
		MatchModeOneVsOne,
		MatchModeTwoVsTwo,
		MatchModeThreeVsThree,
		MatchModeFourVsFour,
		MatchModeFiveVsFive,
	}
}

func (m MatchMode) String() string {
	if name, ok := matchModeNames[m]; ok {
		return name
	}
	return matchModeNames[MatchModeNone]
}

func (m MatchMode) PartySize() int {
	return int(m)
}

func (m MatchMode) IsValid() bool {
	_, ok := matchModeNames[m]
	return ok && m != MatchModeNone
}

// ParseMatchMode accepts a mode name (case insensitive) or its party size.
func ParseMatchMode(s string) (MatchMode, error) {
	s = strings.TrimSpace(s)
	mode, ok := matchModesByName[strings.ToLower(s)]
	if !ok {
		size, err := strconv.Atoi(s)
		if err != nil {
			return MatchModeNone, fmt.Errorf("%w: %q", ErrUnknownMode, s)
		}
		mode = MatchMode(size)
	}
	if !mode.IsValid() {
		return MatchModeNone, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}

	return mode, nil
}

// MatchStatus is where a user currently is in a mode's matchmaking.
type MatchStatus int

const (
	MatchStatusNone MatchStatus = iota
	MatchStatusWaiting
	MatchStatusPending
)

func (s MatchStatus) String() string {
	switch s {
	case MatchStatusWaiting:
		return "Waiting"
	case MatchStatusPending:
		return "Pending"
	default:
		return "None"
	}
}

/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tu "github.com/mymmrac/telego/telegoutil"
)

var (
	ErrInitDataMissing = errors.New("telegram init data missing")
	ErrInitDataInvalid = errors.New("telegram init data invalid")
)

// WebAppUser is the identity carried in Mini App init data
type WebAppUser struct {
	Id         string
	FirstName  string
	LastName   string
	Username   string
	StartParam string
}

// DisplayName joins first and last name the way Telegram shows them
func (u WebAppUser) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// ValidateInitData checks the Mini App init data signature against the bot
// token and returns the user it describes. Data older than maxAge is
// rejected when maxAge is positive.
func ValidateInitData(initData, botToken string, maxAge time.Duration, now time.Time) (*WebAppUser, error) {
	if initData == "" {
		return nil, ErrInitDataMissing
	}
	values, err := tu.ValidateWebAppData(botToken, initData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitDataInvalid, err)
	}

	if maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get(tu.WebAppAuthDate), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad auth_date", ErrInitDataInvalid)
		}
		if now.Sub(time.Unix(authDate, 0)) > maxAge {
			return nil, fmt.Errorf("%w: expired", ErrInitDataInvalid)
		}
	}

	var raw struct {
		Id        int64  `json:"id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Username  string `json:"username"`
	}
	if err := json.Unmarshal([]byte(values.Get(tu.WebAppUser)), &raw); err != nil || raw.Id == 0 {
		return nil, fmt.Errorf("%w: user missing", ErrInitDataInvalid)
	}

	return &WebAppUser{
		Id:         strconv.FormatInt(raw.Id, 10),
		FirstName:  raw.FirstName,
		LastName:   raw.LastName,
		Username:   raw.Username,
		StartParam: values.Get(tu.WebAppStartParam),
	}, nil
}
